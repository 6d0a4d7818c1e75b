package chunk

import "strings"

// DefaultSubcategory is used when a file name carries no subcategory token.
const DefaultSubcategory = "general"

// categoryLabels maps raw category tokens from file names to human-readable
// labels. Tokens missing from the table fall back to a title-cased form of
// the raw token.
var categoryLabels = map[string]string{
	"api":          "API Reference",
	"nodes":        "Core Nodes",
	"credentials":  "Credentials",
	"workflows":    "Workflows",
	"integrations": "Integrations",
	"hosting":      "Hosting",
	"guides":       "Guides",
	"courses":      "Courses",
	"glossary":     "Glossary",
	"release":      "Release Notes",
}

// splitCategory derives the raw category and subcategory tokens from a
// content unit's file name. Convention: {category}_{subcategory...}.ext, with
// multi-token subcategories keeping their underscores.
func splitCategory(fileName string) (category, subcategory string) {
	base := fileName
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	category, subcategory, found := strings.Cut(base, "_")
	if !found || subcategory == "" {
		subcategory = DefaultSubcategory
	}
	return category, subcategory
}

// categoryLabel resolves a raw category token to its display label.
func categoryLabel(token string) string {
	if label, ok := categoryLabels[token]; ok {
		return label
	}
	return titleCase(token)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
