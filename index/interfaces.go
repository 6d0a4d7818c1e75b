package index

import (
	"context"

	"github.com/poiesic/corpusit/core"
)

// QueryResult is one scored hit from a similarity query.
type QueryResult struct {
	ID         string
	Title      string
	Content    string
	Category   string
	SourceFile string
	Score      float64
}

// QueryOptions narrows a similarity query.
type QueryOptions struct {
	// TopK is the maximum number of hits to return. Zero means the
	// backend default.
	TopK int

	// MinScore drops hits scoring below the threshold. Zero keeps all.
	MinScore float64

	// Category restricts hits to one chunk category. Empty matches all.
	Category string
}

// SyncClient pushes corpus chunks to a search index and queries them back.
// Implementations must be thread-safe for concurrent use.
type SyncClient interface {
	// UpsertBatch inserts or replaces the given chunks, keyed by chunk ID.
	// Returns the number of chunks accepted.
	UpsertBatch(ctx context.Context, chunks []core.Chunk) (int, error)

	// Delete removes chunks by ID. Unknown IDs are not an error.
	// Returns the number of deletions issued.
	Delete(ctx context.Context, ids []string) (int, error)

	// Query runs a semantic similarity search over the indexed chunks.
	Query(ctx context.Context, text string, opts QueryOptions) ([]QueryResult, error)

	// Close releases client resources.
	Close() error
}
