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

// Package index synchronizes a processed corpus with a search index.
//
// A Syncer groups chunks by source unit and ships them in bounded batches
// over a SyncClient. The antfly subpackage talks to an AntflyDB cluster; the
// local subpackage keeps an in-memory index for embedded deployments and
// tests.
package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/corpusit/core"
	"golang.org/x/sync/errgroup"
)

const (
	// defaultUnitsPerBatch bounds how many source units' chunks travel in
	// one upsert call.
	defaultUnitsPerBatch = 10

	// defaultConcurrency bounds in-flight batch requests.
	defaultConcurrency = 4
)

// Syncer pushes corpora to a search index in batches.
type Syncer struct {
	client        SyncClient
	unitsPerBatch int
	concurrency   int
	logger        *slog.Logger
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer) error

// WithUnitsPerBatch sets how many source units are grouped per batch.
func WithUnitsPerBatch(n int) SyncerOption {
	return func(s *Syncer) error {
		if n < 1 {
			return fmt.Errorf("units per batch must be positive, got %d", n)
		}
		s.unitsPerBatch = n
		return nil
	}
}

// WithConcurrency sets how many batches may be in flight at once.
func WithConcurrency(n int) SyncerOption {
	return func(s *Syncer) error {
		if n < 1 {
			return fmt.Errorf("concurrency must be positive, got %d", n)
		}
		s.concurrency = n
		return nil
	}
}

// WithSyncLogger sets a custom logger. Default is slog.Default().
func WithSyncLogger(logger *slog.Logger) SyncerOption {
	return func(s *Syncer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSyncer creates a syncer over the given client.
func NewSyncer(client SyncClient, opts ...SyncerOption) (*Syncer, error) {
	if client == nil {
		return nil, ErrClientRequired
	}

	s := &Syncer{
		client:        client,
		unitsPerBatch: defaultUnitsPerBatch,
		concurrency:   defaultConcurrency,
		logger:        slog.Default().With("component", "index-syncer"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SyncStats summarizes one sync run.
type SyncStats struct {
	Batches  int
	Upserted int
	Deleted  int
}

// Sync pushes every chunk of the corpus to the index.
func (s *Syncer) Sync(ctx context.Context, corpus *core.Corpus) (*SyncStats, error) {
	if corpus == nil {
		return nil, ErrNilCorpus
	}

	batches := s.batch(corpus.Chunks)
	stats := &SyncStats{Batches: len(batches)}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	counts := make([]int, len(batches))
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			n, err := s.client.UpsertBatch(ctx, batch)
			if err != nil {
				return fmt.Errorf("upserting batch %d: %w", i, err)
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, n := range counts {
		stats.Upserted += n
	}
	s.logger.Info("corpus synced", "chunks", stats.Upserted, "batches", stats.Batches)
	return stats, nil
}

// SyncDelta pushes only the difference between two corpora: chunks present
// in current but absent or changed in prior are upserted, chunks that
// disappeared are deleted. Chunk IDs are content-derived, so an unchanged
// chunk keeps its ID and transfers nothing.
func (s *Syncer) SyncDelta(ctx context.Context, prior, current *core.Corpus) (*SyncStats, error) {
	if current == nil {
		return nil, ErrNilCorpus
	}
	if prior == nil {
		return s.Sync(ctx, current)
	}

	priorIDs := make(map[string]struct{}, len(prior.Chunks))
	for _, c := range prior.Chunks {
		priorIDs[c.ID] = struct{}{}
	}
	currentIDs := make(map[string]struct{}, len(current.Chunks))
	for _, c := range current.Chunks {
		currentIDs[c.ID] = struct{}{}
	}

	var added []core.Chunk
	for _, c := range current.Chunks {
		if _, ok := priorIDs[c.ID]; !ok {
			added = append(added, c)
		}
	}
	var removed []string
	for _, c := range prior.Chunks {
		if _, ok := currentIDs[c.ID]; !ok {
			removed = append(removed, c.ID)
		}
	}

	stats := &SyncStats{}
	if len(added) > 0 {
		upserted, err := s.Sync(ctx, &core.Corpus{Chunks: added})
		if err != nil {
			return nil, err
		}
		stats.Batches = upserted.Batches
		stats.Upserted = upserted.Upserted
	}
	if len(removed) > 0 {
		n, err := s.client.Delete(ctx, removed)
		if err != nil {
			return nil, fmt.Errorf("deleting stale chunks: %w", err)
		}
		stats.Deleted = n
	}

	s.logger.Info("delta synced",
		"upserted", stats.Upserted,
		"deleted", stats.Deleted)
	return stats, nil
}

// batch groups chunks by source unit and packs up to unitsPerBatch units
// into each batch, keeping all chunks of one unit together.
func (s *Syncer) batch(chunks []core.Chunk) [][]core.Chunk {
	if len(chunks) == 0 {
		return nil
	}

	var (
		batches  [][]core.Chunk
		batch    []core.Chunk
		units    int
		lastUnit string
	)
	for _, c := range chunks {
		if c.SourceFile != lastUnit {
			if units == s.unitsPerBatch {
				batches = append(batches, batch)
				batch = nil
				units = 0
			}
			units++
			lastUnit = c.SourceFile
		}
		batch = append(batch, c)
	}
	if len(batch) > 0 {
		batches = append(batches, batch)
	}
	return batches
}
