package chunk

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/poiesic/corpusit/core"
)

var multiBlank = regexp.MustCompile(`\n{3,}`)

// Build converts one decoded record into at most one chunk. Records whose
// trimmed content is below core.MinContentLength are filtered: the second
// return value is false and no chunk is produced. Build is a pure
// transformation; the same record and unit always yield the same chunk.
func Build(record *core.RawRecord, unit core.ContentUnit) (*core.Chunk, bool) {
	if !core.HasUsableContent(record) {
		return nil, false
	}

	fileName := path.Base(unit.Path)
	body := cleanContent(record.Content)

	title := strings.TrimSpace(record.Title)
	if title == "" {
		title = titleFromFileName(fileName)
	}

	rawCategory, subcategory := splitCategory(fileName)
	category := categoryLabel(rawCategory)

	chunk := &core.Chunk{
		ID:          core.ChunkID(record.URL, title, body, fileName),
		Title:       title,
		Content:     body,
		Category:    category,
		Subcategory: subcategory,
		SourceFile:  unit.Path,
		Tags:        buildTags(rawCategory, subcategory, record.Headings),
		Metadata:    buildMetadata(record, body),
	}
	return chunk, true
}

// cleanContent normalizes line endings, collapses runs of blank lines and
// trims surrounding whitespace.
func cleanContent(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = multiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// titleFromFileName derives a fallback title from the unit's file name.
func titleFromFileName(fileName string) string {
	base := fileName
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	words := strings.Split(base, "_")
	for i, w := range words {
		words[i] = titleCase(w)
	}
	return strings.Join(words, " ")
}

const maxTags = 8

// buildTags assembles the ordered, deduplicated tag set: category and
// subcategory tokens first, then lowercased headings up to the cap.
func buildTags(category, subcategory string, headings []string) []string {
	tags := make([]string, 0, maxTags)
	seen := make(map[string]struct{}, maxTags)

	add := func(tag string) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || len(tags) >= maxTags {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	add(category)
	add(subcategory)
	for _, h := range headings {
		add(h)
	}
	return tags
}

func buildMetadata(record *core.RawRecord, body string) map[string]string {
	meta := make(map[string]string, len(record.Extra)+4)

	// Scalar extras from the scraper carry through; reserved keys below win
	// on collision.
	for key, value := range record.Extra {
		switch v := value.(type) {
		case string:
			meta[key] = v
		case bool:
			meta[key] = strconv.FormatBool(v)
		case float64:
			meta[key] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}

	meta["url"] = record.URL
	meta["char_count"] = strconv.Itoa(len(body))
	if record.ScrapedAt != "" {
		meta["scraped_at"] = record.ScrapedAt
	}
	if n := len(record.Headings); n > 0 {
		meta["headings_count"] = strconv.Itoa(n)
	}
	if n := len(record.Links); n > 0 {
		meta["links_count"] = strconv.Itoa(n)
	}
	if n := len(record.CodeBlocks); n > 0 {
		meta["code_blocks_count"] = strconv.Itoa(n)
	}
	if n := len(record.Images); n > 0 {
		meta["images_count"] = strconv.Itoa(n)
	}
	return meta
}
