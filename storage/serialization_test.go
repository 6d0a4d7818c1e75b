package storage

import (
	"testing"
	"time"

	"github.com/poiesic/corpusit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunk() *core.Chunk {
	return &core.Chunk{
		ID:          "abcdef0123456789",
		Title:       "HTTP Request node",
		Content:     "The HTTP Request node lets workflows call arbitrary endpoints.",
		Category:    "Core Nodes",
		Subcategory: "http",
		SourceFile:  "nodes_http.json",
		Tags:        []string{"nodes", "http"},
		Metadata:    map[string]string{"url": "https://example.com/nodes/http", "char_count": "62"},
	}
}

func TestMarshalUnmarshalChunk(t *testing.T) {
	tests := []struct {
		name  string
		chunk *core.Chunk
	}{
		{"full chunk", testChunk()},
		{"minimal chunk", &core.Chunk{ID: "00ff", Content: "x", Category: "c", SourceFile: "c.json"}},
		{
			"split sub-chunk",
			&core.Chunk{
				ID:       "abcdef0123456789_part_2",
				Content:  "tail of an oversized unit",
				Category: "Core Nodes",
				ParentID: "abcdef0123456789",
				Ordinal:  2,
				Metadata: map[string]string{"is_split": "true"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalChunk(tt.chunk)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalChunk(data)
			require.NoError(t, err)
			assert.Equal(t, tt.chunk, decoded)
		})
	}
}

func TestUnmarshalChunk_Truncated(t *testing.T) {
	data := MarshalChunk(testChunk())

	_, err := UnmarshalChunk(data[:len(data)/2])
	assert.Error(t, err)

	_, err = UnmarshalChunk([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalCorpus(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	corpus := &core.Corpus{
		Chunks:         []core.Chunk{*testChunk()},
		CategoryCounts: map[string]int{"Core Nodes": 1},
		ProcessedAt:    now,
	}

	data := MarshalCorpus(corpus)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalCorpus(data)
	require.NoError(t, err)
	assert.Equal(t, corpus, decoded)
}

func TestMarshalUnmarshalCorpus_Empty(t *testing.T) {
	corpus := &core.Corpus{ProcessedAt: time.Unix(0, 0).UTC()}

	decoded, err := UnmarshalCorpus(MarshalCorpus(corpus))
	require.NoError(t, err)
	assert.Empty(t, decoded.Chunks)
	assert.Empty(t, decoded.CategoryCounts)
}

func TestUnmarshalCorpus_SchemaMismatch(t *testing.T) {
	corpus := &core.Corpus{ProcessedAt: time.Now().UTC()}
	data := MarshalCorpus(corpus)

	// The version prefix is a single varint byte for small versions.
	data[0] = SchemaVersion + 1

	_, err := UnmarshalCorpus(data)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.NotErrorIs(t, err, ErrCorruptCache)
}

func TestUnmarshalCorpus_Corrupt(t *testing.T) {
	_, err := UnmarshalCorpus([]byte{})
	assert.ErrorIs(t, err, ErrCorruptCache)

	corpus := &core.Corpus{
		Chunks:      []core.Chunk{*testChunk()},
		ProcessedAt: time.Now().UTC(),
	}
	data := MarshalCorpus(corpus)

	_, err = UnmarshalCorpus(data[:len(data)-3])
	assert.ErrorIs(t, err, ErrCorruptCache)
}
