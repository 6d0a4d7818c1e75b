package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validChunk() *Chunk {
	return &Chunk{
		ID:          "abcdef0123456789",
		Title:       "HTTP Request node",
		Content:     strings.Repeat("The HTTP Request node makes calls. ", 3),
		Category:    "Core Nodes",
		Subcategory: "http",
		SourceFile:  "nodes_http.json",
	}
}

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Chunk)
		wantErr error
	}{
		{"valid", func(c *Chunk) {}, nil},
		{"nil-safe fields", func(c *Chunk) { c.Tags = nil; c.Metadata = nil }, nil},
		{"empty id", func(c *Chunk) { c.ID = "" }, ErrEmptyID},
		{"empty content", func(c *Chunk) { c.Content = "   " }, ErrEmptyContent},
		{"short content", func(c *Chunk) { c.Content = "too short" }, ErrContentTooShort},
		{"empty category", func(c *Chunk) { c.Category = "" }, ErrEmptyCategory},
		{"empty source file", func(c *Chunk) { c.SourceFile = "" }, ErrEmptySourceFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk := validChunk()
			tt.mutate(chunk)

			err := ValidateChunk(chunk)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidChunk)
		})
	}
}

func TestValidateChunk_Nil(t *testing.T) {
	assert.ErrorIs(t, ValidateChunk(nil), ErrInvalidChunk)
}

func TestValidateChunk_SplitTailMayBeShort(t *testing.T) {
	chunk := validChunk()
	chunk.ParentID = chunk.ID
	chunk.ID = chunk.ParentID + "_part_3"
	chunk.Ordinal = 3
	chunk.Content = "short tail."

	assert.NoError(t, ValidateChunk(chunk))
}

func TestHasUsableContent(t *testing.T) {
	tests := []struct {
		name   string
		record *RawRecord
		want   bool
	}{
		{"nil record", nil, false},
		{"empty content", &RawRecord{Content: ""}, false},
		{"whitespace only", &RawRecord{Content: "   \n\t  "}, false},
		{"just under threshold", &RawRecord{Content: strings.Repeat("x", MinContentLength-1)}, false},
		{"exactly threshold", &RawRecord{Content: strings.Repeat("x", MinContentLength)}, true},
		{"padded to threshold", &RawRecord{Content: "  " + strings.Repeat("x", MinContentLength) + "  "}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasUsableContent(tt.record))
		})
	}
}

func TestValidateRawRecord(t *testing.T) {
	assert.ErrorIs(t, ValidateRawRecord(nil), ErrInvalidRecord)
	assert.ErrorIs(t, ValidateRawRecord(&RawRecord{Title: "t"}), ErrEmptyContent)
	assert.NoError(t, ValidateRawRecord(&RawRecord{Content: "hello"}))
}
