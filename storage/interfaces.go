package storage

import (
	"context"
	"time"

	"github.com/poiesic/corpusit/core"
)

// Meta is the sidecar document persisted alongside the corpus blob: the
// fingerprint of the source directory at save time plus the per-unit
// processed registry used by incremental updates.
type Meta struct {
	SchemaVersion int                             `json:"schema_version"`
	Fingerprint   core.Fingerprint                `json:"fingerprint"`
	Processed     map[string]core.ProcessedRecord `json:"processed"`
	SavedAt       time.Time                       `json:"saved_at"`
}

// CacheStore persists the last successfully processed corpus.
// Implementations must be thread-safe and support concurrent access.
type CacheStore interface {
	// Load returns the cached corpus. Returns ErrCacheMiss when no cache
	// exists or the persisted blob cannot be decoded; a miss is never fatal
	// and triggers full reprocessing in the caller.
	Load(ctx context.Context) (*core.Corpus, error)

	// Meta returns the sidecar metadata without loading the corpus blob.
	// Returns ErrCacheMiss when no sidecar exists or it cannot be decoded.
	Meta(ctx context.Context) (*Meta, error)

	// Save atomically persists a corpus together with its fingerprint and
	// processed registry. A crash mid-save must never leave a half-written
	// cache visible to Load.
	Save(ctx context.Context, corpus *core.Corpus, fp *core.Fingerprint, processed map[string]core.ProcessedRecord) error

	// Invalidate deletes the persisted blob and sidecar. Invalidating an
	// already-empty store is not an error.
	Invalidate(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}
