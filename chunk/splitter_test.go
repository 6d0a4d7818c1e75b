package chunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/poiesic/corpusit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parentChunk(body string) core.Chunk {
	return core.Chunk{
		ID:          "abcdef0123456789",
		Title:       "HTTP Request node",
		Content:     body,
		Category:    "Core Nodes",
		Subcategory: "http",
		SourceFile:  "nodes_http.json",
		Tags:        []string{"nodes", "http"},
		Metadata:    map[string]string{"url": "https://example.com/nodes/http"},
	}
}

func TestNewSplitter_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		maxSize int
		overlap int
		wantErr error
	}{
		{"zero max size", 0, 0, ErrInvalidChunkSize},
		{"negative max size", -1, 0, ErrInvalidChunkSize},
		{"negative overlap", 1000, -1, ErrInvalidOverlap},
		{"overlap equals max size", 1000, 1000, ErrInvalidOverlap},
		{"overlap exceeds max size", 1000, 1500, ErrInvalidOverlap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(tt.maxSize, tt.overlap)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSplit_SmallChunkUnchanged(t *testing.T) {
	s, err := NewSplitter(DefaultMaxChunkSize, DefaultOverlap)
	require.NoError(t, err)

	parent := parentChunk("fits in a single chunk")
	out := s.Split(parent)
	require.Len(t, out, 1)
	assert.Equal(t, parent, out[0])
	assert.False(t, out[0].IsSplit())
}

func TestSplit_ExampleScenario(t *testing.T) {
	// 2500 chars, maxSize=1000, overlap=200: ceil((2500-1000)/800)+1 = 3.
	s, err := NewSplitter(1000, 200)
	require.NoError(t, err)

	parent := parentChunk(strings.Repeat("x", 2500))
	subs := s.Split(parent)
	require.Len(t, subs, 3)

	for i, sub := range subs {
		assert.Equal(t, fmt.Sprintf("%s_part_%d", parent.ID, i), sub.ID)
		assert.Equal(t, parent.ID, sub.ParentID)
		assert.Equal(t, i, sub.Ordinal)
		assert.True(t, sub.IsSplit())
		assert.Equal(t, "true", sub.Metadata["is_split"])
		assert.Equal(t, fmt.Sprint(len(sub.Content)), sub.Metadata["chunk_chars"])
		assert.Equal(t, parent.Category, sub.Category)
		assert.LessOrEqual(t, len(sub.Content), 1000)
	}

	// Parent metadata is copied, not shared.
	assert.Equal(t, "https://example.com/nodes/http", subs[0].Metadata["url"])
	_, parentHasSplit := parent.Metadata["is_split"]
	assert.False(t, parentHasSplit)
}

func TestSplit_Idempotent(t *testing.T) {
	s, err := NewSplitter(1000, 200)
	require.NoError(t, err)

	parent := parentChunk(strings.Repeat("Sentence with an ending. ", 200))
	first := s.Split(parent)
	second := s.Split(parent)
	assert.Equal(t, first, second)
}

func TestSplit_PrefersSentenceBoundaries(t *testing.T) {
	s, err := NewSplitter(200, 20)
	require.NoError(t, err)

	body := strings.Repeat("A short sentence ends here. ", 40)
	subs := s.Split(parentChunk(body))
	require.Greater(t, len(subs), 1)

	// Every non-final window should break just after a sentence end.
	for _, sub := range subs[:len(subs)-1] {
		trimmed := strings.TrimRight(sub.Content, " ")
		assert.True(t, strings.HasSuffix(trimmed, "."), "window %q should end at a sentence", sub.Content)
	}
}

func TestSplit_CoverageAndBound(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		maxSize int
		overlap int
	}{
		{"no boundaries", strings.Repeat("y", 5000), 1000, 200},
		{"exact multiple", strings.Repeat("z", 1600), 800, 0},
		{"tiny windows", strings.Repeat("q", 137), 10, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSplitter(tt.maxSize, tt.overlap)
			require.NoError(t, err)

			subs := s.Split(parentChunk(tt.body))

			stride := tt.maxSize - tt.overlap
			bound := (len(tt.body) + stride - 1) / stride
			assert.LessOrEqual(t, len(subs), bound)

			// Reassembling the windows with their overlap removed must
			// reproduce the original body.
			var rebuilt strings.Builder
			rebuilt.WriteString(subs[0].Content)
			for _, sub := range subs[1:] {
				rebuilt.WriteString(sub.Content[tt.overlap:])
			}
			assert.Equal(t, tt.body, rebuilt.String())
		})
	}
}

func TestSplit_SkipsBlankWindowsWithoutOrdinalGap(t *testing.T) {
	s, err := NewSplitter(10, 0)
	require.NoError(t, err)

	body := "0123456789" + "          " + "abcdefghij"
	subs := s.Split(parentChunk(body))
	require.Len(t, subs, 2)
	assert.Equal(t, 0, subs[0].Ordinal)
	assert.Equal(t, 1, subs[1].Ordinal)
	assert.Equal(t, "abcdefghij", subs[1].Content)
}

func TestSplit_TerminatesWithDenseBoundaries(t *testing.T) {
	s, err := NewSplitter(150, 120)
	require.NoError(t, err)

	// A sentence end early in every window pulls the boundary scan far
	// enough back that applying the overlap would move the cursor backward.
	// The split must still make forward progress and terminate.
	body := strings.Repeat(strings.Repeat("a", 105)+".", 10)
	subs := s.Split(parentChunk(body))
	assert.NotEmpty(t, subs)
	assert.LessOrEqual(t, len(subs), 11)
}
