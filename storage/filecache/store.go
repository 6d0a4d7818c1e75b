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

// Package filecache implements storage.CacheStore on the local filesystem.
//
// The corpus lives in a binary blob file next to a JSON sidecar holding the
// fingerprint and processed registry. Both are written via a temp file and
// rename, blob first and sidecar last, so a crash mid-save leaves either the
// previous complete cache or a stale sidecar that fails fingerprint
// validation, never a torn corpus.
package filecache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/poiesic/corpusit/core"
	"github.com/poiesic/corpusit/storage"
)

const (
	blobFile = "corpus.bin"
	metaFile = "corpus.meta.json"
)

// Store is a filesystem-backed cache store.
type Store struct {
	dir    string
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ storage.CacheStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets the logger used by the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// New creates a file-backed cache store rooted at dir, creating the
// directory if needed.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	s := &Store{
		dir:    dir,
		logger: slog.Default().With("component", "filecache"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) blobPath() string { return filepath.Join(s.dir, blobFile) }
func (s *Store) metaPath() string { return filepath.Join(s.dir, metaFile) }

// Load reads and decodes the cached corpus blob.
func (s *Store) Load(ctx context.Context) (*core.Corpus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.blobPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrCacheMiss
		}
		return nil, fmt.Errorf("reading corpus blob: %w", err)
	}

	corpus, err := storage.UnmarshalCorpus(data)
	if err != nil {
		s.logger.Warn("cached corpus unreadable, treating as miss", "error", err)
		return nil, fmt.Errorf("%w: %w", storage.ErrCacheMiss, err)
	}
	return corpus, nil
}

// Meta reads the sidecar without touching the corpus blob.
func (s *Store) Meta(ctx context.Context) (*storage.Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.metaPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrCacheMiss
		}
		return nil, fmt.Errorf("reading cache sidecar: %w", err)
	}

	var meta storage.Meta
	if err := sonic.Unmarshal(data, &meta); err != nil {
		s.logger.Warn("cache sidecar unreadable, treating as miss", "error", err)
		return nil, fmt.Errorf("%w: %w", storage.ErrCacheMiss, err)
	}
	if meta.SchemaVersion != storage.SchemaVersion {
		return nil, fmt.Errorf("%w: sidecar version %d, want %d",
			storage.ErrCacheMiss, meta.SchemaVersion, storage.SchemaVersion)
	}
	return &meta, nil
}

// Save atomically persists the corpus blob and its sidecar.
func (s *Store) Save(ctx context.Context, corpus *core.Corpus, fp *core.Fingerprint, processed map[string]core.ProcessedRecord) error {
	if corpus == nil {
		return storage.ErrNilCorpus
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	meta := storage.Meta{
		SchemaVersion: storage.SchemaVersion,
		Processed:     processed,
		SavedAt:       time.Now().UTC(),
	}
	if fp != nil {
		meta.Fingerprint = *fp
	}

	sidecar, err := sonic.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("encoding cache sidecar: %w", err)
	}

	// Blob first, sidecar last. A sidecar is only visible once the blob it
	// describes is fully in place.
	if err := writeAtomic(s.blobPath(), storage.MarshalCorpus(corpus)); err != nil {
		return fmt.Errorf("writing corpus blob: %w", err)
	}
	if err := writeAtomic(s.metaPath(), sidecar); err != nil {
		return fmt.Errorf("writing cache sidecar: %w", err)
	}

	s.logger.Debug("cache saved",
		"chunks", corpus.Len(),
		"processed_units", len(processed))
	return nil
}

// Invalidate removes the blob and sidecar. Missing files are not an error.
func (s *Store) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Sidecar first so a crash between the two removals never leaves a
	// sidecar pointing at a missing blob.
	for _, path := range []string{s.metaPath(), s.blobPath()} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", filepath.Base(path), err)
		}
	}
	s.logger.Debug("cache invalidated", "dir", s.dir)
	return nil
}

// Close marks the store closed. Further operations fail with
// storage.ErrStorageClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
