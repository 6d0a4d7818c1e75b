package local

import (
	"context"
	"testing"

	"github.com/poiesic/corpusit/core"
	"github.com/poiesic/corpusit/embed/mock"
	"github.com/poiesic/corpusit/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedVectorEmbedder returns hand-picked vectors per text so similarity
// rankings in tests are exact rather than hash-dependent.
func fixedVectorEmbedder(vectors map[string][]float32) *mock.Embedder {
	m := mock.NewEmbedder()
	m.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		return vectors[text], nil
	}
	m.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, t := range texts {
			out[i] = vectors[t]
		}
		return out, nil
	}
	return m
}

func testChunks() []core.Chunk {
	return []core.Chunk{
		{ID: "a1", Title: "Webhooks", Content: "webhook docs", Category: "Core Nodes", SourceFile: "nodes_webhook.json"},
		{ID: "b2", Title: "Credentials", Content: "credential docs", Category: "Credentials", SourceFile: "credentials_overview.json"},
		{ID: "c3", Title: "Hosting", Content: "hosting docs", Category: "Hosting", SourceFile: "hosting_docker.json"},
	}
}

func testVectors() map[string][]float32 {
	return map[string][]float32{
		"webhook docs":    {1, 0, 0},
		"credential docs": {0, 1, 0},
		"hosting docs":    {0, 0, 1},
		// Query vectors.
		"about webhooks": {0.9, 0.1, 0},
		"about hosting":  {0.1, 0, 0.9},
	}
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(fixedVectorEmbedder(testVectors()))
	require.NoError(t, err)

	n, err := idx.UpsertBatch(context.Background(), testChunks())
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return idx
}

func TestNew_NilEmbedder(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestQuery_RanksBySimilarity(t *testing.T) {
	idx := newTestIndex(t)

	results, err := idx.Query(context.Background(), "about webhooks", index.QueryOptions{TopK: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a1", results[0].ID)
	assert.Equal(t, "Webhooks", results[0].Title)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestQuery_TopK(t *testing.T) {
	idx := newTestIndex(t)

	results, err := idx.Query(context.Background(), "about webhooks", index.QueryOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a1", results[0].ID)
}

func TestQuery_MinScore(t *testing.T) {
	idx := newTestIndex(t)

	results, err := idx.Query(context.Background(), "about hosting", index.QueryOptions{TopK: 10, MinScore: 0.5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c3", results[0].ID)
}

func TestQuery_CategoryFilter(t *testing.T) {
	idx := newTestIndex(t)

	results, err := idx.Query(context.Background(), "about webhooks", index.QueryOptions{TopK: 10, Category: "Hosting"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c3", results[0].ID)
}

func TestUpsert_ReplacesByID(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	updated := core.Chunk{ID: "a1", Title: "Webhooks v2", Content: "webhook docs", Category: "Core Nodes", SourceFile: "nodes_webhook.json"}
	_, err := idx.UpsertBatch(ctx, []core.Chunk{updated})
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	results, err := idx.Query(ctx, "about webhooks", index.QueryOptions{TopK: 1})
	require.NoError(t, err)
	assert.Equal(t, "Webhooks v2", results[0].Title)
}

func TestDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	n, err := idx.Delete(ctx, []string{"a1", "nope"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, idx.Len())

	results, err := idx.Query(ctx, "about webhooks", index.QueryOptions{TopK: 10})
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a1", r.ID)
	}
}

func TestClose_ClearsEntries(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Close())
	assert.Zero(t, idx.Len())
}
