package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkID_Deterministic(t *testing.T) {
	a := ChunkID("https://example.com/docs", "Auth", "some body text", "api_auth.json")
	b := ChunkID("https://example.com/docs", "Auth", "some body text", "api_auth.json")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestChunkID_SensitiveToInputs(t *testing.T) {
	base := ChunkID("url", "title", "body", "file.json")

	tests := []struct {
		name string
		id   string
	}{
		{"different url", ChunkID("url2", "title", "body", "file.json")},
		{"different title", ChunkID("url", "title2", "body", "file.json")},
		{"different body", ChunkID("url", "title", "body2", "file.json")},
		{"different file", ChunkID("url", "title", "body", "file2.json")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, tt.id)
		})
	}
}

func TestChunkID_BodyPrefixOnly(t *testing.T) {
	prefix := strings.Repeat("a", 100)
	a := ChunkID("url", "title", prefix+"tail one", "file.json")
	b := ChunkID("url", "title", prefix+"different tail", "file.json")

	// Changes past the hashed prefix do not affect identity.
	assert.Equal(t, a, b)

	c := ChunkID("url", "title", "b"+prefix[1:]+"tail one", "file.json")
	assert.NotEqual(t, a, c)
}

func TestHashStrings_SeparatesParts(t *testing.T) {
	assert.NotEqual(t, HashStrings("ab", "c"), HashStrings("a", "bc"))
	assert.Equal(t, HashStrings("a", "b"), HashStrings("a", "b"))
}

func TestFingerprint_Equal(t *testing.T) {
	now := time.Now()
	fp := &Fingerprint{UnitCount: 3, TotalSize: 100, Hash: "abc", CreatedAt: now}

	tests := []struct {
		name  string
		other *Fingerprint
		want  bool
	}{
		{"same count and hash", &Fingerprint{UnitCount: 3, Hash: "abc"}, true},
		{"different created-at still equal", &Fingerprint{UnitCount: 3, Hash: "abc", CreatedAt: now.Add(time.Hour)}, true},
		{"different count", &Fingerprint{UnitCount: 4, Hash: "abc"}, false},
		{"different hash", &Fingerprint{UnitCount: 3, Hash: "def"}, false},
		{"nil other", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fp.Equal(tt.other))
		})
	}
}

func TestCorpus_Index(t *testing.T) {
	corpus := &Corpus{
		Chunks: []Chunk{
			{ID: "a", Title: "first"},
			{ID: "b", Title: "second"},
		},
	}

	idx := corpus.Index()
	require.Len(t, idx, 2)
	assert.Equal(t, "first", idx["a"].Title)
	assert.Equal(t, "second", idx["b"].Title)
	assert.Equal(t, 2, corpus.Len())

	var empty *Corpus
	assert.Equal(t, 0, empty.Len())
}
