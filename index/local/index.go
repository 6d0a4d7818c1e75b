// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package local implements index.SyncClient in memory. Chunks are embedded
// on upsert and queries score by dot product, which equals cosine similarity
// for normalized vectors. Useful for embedded deployments and tests.
package local

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/poiesic/corpusit/core"
	"github.com/poiesic/corpusit/embed"
	"github.com/poiesic/corpusit/index"
)

type entry struct {
	chunk  core.Chunk
	vector []float32
}

// Index is an in-memory, embedder-backed sync client.
type Index struct {
	embedder embed.Embedder

	mu      sync.RWMutex
	entries map[string]entry
}

var _ index.SyncClient = (*Index)(nil)

// New creates an empty in-memory index over the given embedder.
func New(embedder embed.Embedder) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	return &Index{
		embedder: embedder,
		entries:  make(map[string]entry),
	}, nil
}

// UpsertBatch embeds the chunks' content and stores them keyed by ID.
func (idx *Index) UpsertBatch(ctx context.Context, chunks []core.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := idx.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, c := range chunks {
		idx.entries[c.ID] = entry{chunk: c, vector: vectors[i]}
	}
	return len(chunks), nil
}

// Delete removes chunks by ID. Unknown IDs are ignored.
func (idx *Index) Delete(ctx context.Context, ids []string) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		if _, ok := idx.entries[id]; ok {
			delete(idx.entries, id)
			deleted++
		}
	}
	return deleted, nil
}

// Query embeds the text and returns the top matches by dot product.
func (idx *Index) Query(ctx context.Context, text string, opts index.QueryOptions) ([]index.QueryResult, error) {
	vector, err := idx.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var results []index.QueryResult
	for _, e := range idx.entries {
		if opts.Category != "" && e.chunk.Category != opts.Category {
			continue
		}
		score := float64(dotProduct(vector, e.vector))
		if opts.MinScore > 0 && score < opts.MinScore {
			continue
		}
		results = append(results, index.QueryResult{
			ID:         e.chunk.ID,
			Title:      e.chunk.Title,
			Content:    e.chunk.Content,
			Category:   e.chunk.Category,
			SourceFile: e.chunk.SourceFile,
			Score:      score,
		})
	}

	slices.SortFunc(results, func(a, b index.QueryResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		// Stable tiebreak so equal scores order deterministically.
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	limit := opts.TopK
	if limit <= 0 {
		limit = 10
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Close clears the index.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = make(map[string]entry)
	return nil
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
