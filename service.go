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

package corpusit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/corpusit/core"
	"github.com/poiesic/corpusit/index"
	"github.com/poiesic/corpusit/pipeline"
	"github.com/poiesic/corpusit/scanner"
	"github.com/poiesic/corpusit/storage"
	"github.com/poiesic/corpusit/storage/filecache"
	"golang.org/x/sync/singleflight"
)

// corpusProcessor is the slice of pipeline.Processor the service uses.
type corpusProcessor interface {
	Process(ctx context.Context, dir string) (*pipeline.Result, error)
	ProcessIncremental(ctx context.Context, dir string, prior *core.Corpus, registry map[string]core.ProcessedRecord) (*pipeline.Result, error)
	Release()
}

// Service is the top-level entry point: it decides between serving the
// cached corpus and rebuilding from source, persists results, and optionally
// keeps a search index in sync.
type Service struct {
	sourceDir string
	store     storage.CacheStore
	processor corpusProcessor
	sync      index.SyncClient
	maxAge    time.Duration
	logger    *slog.Logger

	// flight collapses concurrent rebuild requests into one processor run.
	flight singleflight.Group

	// buildMu serializes processor runs and cache writes. It is never held
	// while serving from memory, so Stats and InvalidateAll stay responsive
	// during a rebuild.
	buildMu sync.Mutex

	mu        sync.Mutex
	current   *core.Corpus
	lastStats pipeline.RunStats
	closed    bool
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	store      storage.CacheStore
	syncClient index.SyncClient
	maxAge     time.Duration
	poolSize   int
	logger     *slog.Logger
}

// WithCacheStore supplies a cache store, overriding the default file-backed
// store in cacheDir.
func WithCacheStore(store storage.CacheStore) ServiceOption {
	return func(o *serviceOptions) {
		o.store = store
	}
}

// WithIndexClient attaches a search index that Sync, Update and Query run
// against.
func WithIndexClient(client index.SyncClient) ServiceOption {
	return func(o *serviceOptions) {
		o.syncClient = client
	}
}

// WithMaxCacheAge sets how long a cached corpus stays fresh.
// Default is scanner.DefaultMaxAge.
func WithMaxCacheAge(d time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		o.maxAge = d
	}
}

// WithPoolSize sets the processing pool size.
func WithPoolSize(size int) ServiceOption {
	return func(o *serviceOptions) {
		o.poolSize = size
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// New creates a service reading from sourceDir and caching in cacheDir.
// cacheDir may be empty when WithCacheStore is given.
func New(sourceDir, cacheDir string, opts ...ServiceOption) (*Service, error) {
	if sourceDir == "" {
		return nil, ErrSourceDirRequired
	}

	options := &serviceOptions{maxAge: scanner.DefaultMaxAge}
	for _, opt := range opts {
		opt(options)
	}

	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	store := options.store
	if store == nil {
		if cacheDir == "" {
			return nil, ErrCacheDirRequired
		}
		var err error
		store, err = filecache.New(cacheDir)
		if err != nil {
			return nil, err
		}
	}

	var procOpts []pipeline.Option
	if options.poolSize > 0 {
		procOpts = append(procOpts, pipeline.WithPoolSize(options.poolSize))
	}
	processor, err := pipeline.NewProcessor(procOpts...)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Service{
		sourceDir: sourceDir,
		store:     store,
		processor: processor,
		sync:      options.syncClient,
		maxAge:    options.maxAge,
		logger:    logger,
	}, nil
}

// Corpus returns the current corpus. Decision order: a corpus already held
// in memory is returned as is; otherwise the persisted cache is served when
// the source directory's fingerprint still matches and the cache has not
// expired; otherwise the corpus is rebuilt from source. With force set, the
// first two steps are skipped. Concurrent rebuild requests share a single
// processor run.
func (s *Service) Corpus(ctx context.Context, force bool) (*core.Corpus, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	if !force {
		s.mu.Lock()
		held := s.current
		s.mu.Unlock()
		if held != nil {
			return held, nil
		}

		if corpus := s.loadFresh(ctx); corpus != nil {
			s.mu.Lock()
			s.current = corpus
			s.mu.Unlock()
			return corpus, nil
		}
	}

	v, err, _ := s.flight.Do("rebuild", func() (any, error) {
		return s.rebuild(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.Corpus), nil
}

// Update runs an incremental build against the cached registry and persists
// the result. Without a usable cache it falls back to a full rebuild. When
// an index client is configured, only the difference is pushed to it.
func (s *Service) Update(ctx context.Context) (*core.Corpus, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	if s.isClosed() {
		return nil, ErrClosed
	}

	prior, meta, err := s.loadCache(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrCacheMiss) {
			return nil, err
		}
		s.logger.Info("no usable cache, running full build")
		return s.rebuildHeld(ctx)
	}

	result, err := s.processor.ProcessIncremental(ctx, s.sourceDir, prior, meta.Processed)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, result.Corpus, result.Fingerprint, result.Processed); err != nil {
		return nil, err
	}

	if s.sync != nil {
		syncer, err := index.NewSyncer(s.sync, index.WithSyncLogger(s.logger))
		if err != nil {
			return nil, err
		}
		if _, err := syncer.SyncDelta(ctx, prior, result.Corpus); err != nil {
			return nil, err
		}
	}

	s.publish(result)
	return result.Corpus, nil
}

// Sync pushes the full current corpus to the configured index.
func (s *Service) Sync(ctx context.Context) (*index.SyncStats, error) {
	if s.sync == nil {
		return nil, ErrNoIndex
	}

	corpus, err := s.Corpus(ctx, false)
	if err != nil {
		return nil, err
	}

	syncer, err := index.NewSyncer(s.sync, index.WithSyncLogger(s.logger))
	if err != nil {
		return nil, err
	}
	return syncer.Sync(ctx, corpus)
}

// Query runs a similarity search against the configured index.
func (s *Service) Query(ctx context.Context, text string, opts index.QueryOptions) ([]index.QueryResult, error) {
	if s.sync == nil {
		return nil, ErrNoIndex
	}
	return s.sync.Query(ctx, text, opts)
}

// InvalidateAll drops the cached corpus. The next Corpus call rebuilds.
func (s *Service) InvalidateAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.current = nil
	return s.store.Invalidate(ctx)
}

// Stats describes the service's cache and corpus state.
type Stats struct {
	CacheExists     bool
	CacheValid      bool
	TotalChunks     int
	CategoryCounts  map[string]int
	LastProcessedAt time.Time
	LastRun         pipeline.RunStats
}

// Stats reports cache validity and corpus shape without triggering a build.
// It never waits on an in-flight rebuild.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	stats := &Stats{LastRun: s.lastStats}
	s.mu.Unlock()

	meta, err := s.store.Meta(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrCacheMiss) {
			return stats, nil
		}
		return nil, err
	}
	stats.CacheExists = true

	current, err := scanner.Fingerprint(s.sourceDir)
	if err == nil {
		stats.CacheValid = scanner.Valid(&meta.Fingerprint, current, s.maxAge)
	}

	corpus, err := s.store.Load(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrCacheMiss) {
			return stats, nil
		}
		return nil, err
	}
	stats.TotalChunks = corpus.Len()
	stats.CategoryCounts = corpus.CategoryCounts
	stats.LastProcessedAt = corpus.ProcessedAt
	return stats, nil
}

// Close releases the processor pool and closes the store and index client.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.processor.Release()

	var errs []error
	if s.sync != nil {
		if err := s.sync.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Service) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// loadFresh returns the cached corpus when its fingerprint matches the
// source directory and it has not expired, nil otherwise.
func (s *Service) loadFresh(ctx context.Context) *core.Corpus {
	meta, err := s.store.Meta(ctx)
	if err != nil {
		return nil
	}

	current, err := scanner.Fingerprint(s.sourceDir)
	if err != nil {
		return nil
	}
	if !scanner.Valid(&meta.Fingerprint, current, s.maxAge) {
		s.logger.Debug("cache stale",
			"cached_units", meta.Fingerprint.UnitCount,
			"current_units", current.UnitCount)
		return nil
	}

	corpus, err := s.store.Load(ctx)
	if err != nil {
		return nil
	}
	s.logger.Debug("serving corpus from cache", "chunks", corpus.Len())
	return corpus
}

// loadCache loads both corpus and sidecar, or a cache miss.
func (s *Service) loadCache(ctx context.Context) (*core.Corpus, *storage.Meta, error) {
	meta, err := s.store.Meta(ctx)
	if err != nil {
		return nil, nil, err
	}
	corpus, err := s.store.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	return corpus, meta, nil
}

// rebuild runs a full processing pass and persists the result.
func (s *Service) rebuild(ctx context.Context) (*core.Corpus, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	if s.isClosed() {
		return nil, ErrClosed
	}
	return s.rebuildHeld(ctx)
}

// rebuildHeld runs the processor and publishes the result. Caller must hold
// s.buildMu; s.mu is taken only to publish, never across processing I/O.
func (s *Service) rebuildHeld(ctx context.Context) (*core.Corpus, error) {
	result, err := s.processor.Process(ctx, s.sourceDir)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, result.Corpus, result.Fingerprint, result.Processed); err != nil {
		return nil, err
	}
	s.publish(result)
	return result.Corpus, nil
}

// publish installs a completed build as the in-memory corpus.
func (s *Service) publish(result *pipeline.Result) {
	s.mu.Lock()
	s.current = result.Corpus
	s.lastStats = result.Stats
	s.mu.Unlock()
}
