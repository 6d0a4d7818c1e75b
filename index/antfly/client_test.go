package antfly

import (
	"testing"

	"github.com/poiesic/corpusit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"complete", Config{BaseURL: "http://localhost:8080", Table: "docs", Index: "semantic"}, false},
		{"missing base url", Config{Table: "docs", Index: "semantic"}, true},
		{"missing table", Config{BaseURL: "http://localhost:8080", Index: "semantic"}, true},
		{"missing index", Config{BaseURL: "http://localhost:8080", Table: "docs"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChunkDocument(t *testing.T) {
	chunk := &core.Chunk{
		ID:          "abc123",
		Title:       "Webhook node",
		Content:     "Starts a workflow on inbound HTTP.",
		Category:    "Core Nodes",
		Subcategory: "webhook",
		SourceFile:  "nodes_webhook.json",
		Tags:        []string{"nodes", "webhook"},
		Metadata:    map[string]string{"url": "https://example.com"},
	}

	doc := chunkDocument(chunk)
	assert.Equal(t, "abc123", doc["id"])
	assert.Equal(t, "Core Nodes", doc["category"])
	assert.Equal(t, "nodes_webhook.json", doc["source_file"])
	assert.NotContains(t, doc, "parent_id")

	sub := &core.Chunk{
		ID:       "abc123_part_1",
		Content:  "tail",
		Category: "Core Nodes",
		ParentID: "abc123",
		Ordinal:  1,
	}
	doc = chunkDocument(sub)
	assert.Equal(t, "abc123", doc["parent_id"])
	assert.Equal(t, 1, doc["ordinal"])
}

func TestResultFromSource(t *testing.T) {
	source := map[string]any{
		"id":          "abc123",
		"title":       "Webhook node",
		"content":     "Starts a workflow on inbound HTTP.",
		"category":    "Core Nodes",
		"source_file": "nodes_webhook.json",
	}

	qr := resultFromSource(source, 0.87)
	assert.Equal(t, "abc123", qr.ID)
	assert.Equal(t, "Webhook node", qr.Title)
	assert.Equal(t, "Core Nodes", qr.Category)
	assert.Equal(t, "nodes_webhook.json", qr.SourceFile)
	assert.InDelta(t, 0.87, qr.Score, 1e-9)

	// Missing or mistyped fields degrade to zero values.
	qr = resultFromSource(map[string]any{"id": 42}, 0.5)
	assert.Empty(t, qr.ID)
}

func TestNewClient_InvalidConfig(t *testing.T) {
	_, err := NewClient(&Config{}, nil)
	require.Error(t, err)
}
