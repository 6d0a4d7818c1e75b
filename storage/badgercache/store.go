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

// Package badgercache implements storage.CacheStore on BadgerDB.
//
// Blob and sidecar are written in a single transaction, so saves are atomic
// without the rename dance the filesystem backend needs. Suited to
// deployments that already run an embedded Badger instance.
package badgercache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/corpusit/core"
	"github.com/poiesic/corpusit/storage"
)

// Keys for the two cache documents.
const (
	corpusKey = "corpus:blob"
	metaKey   = "corpus:meta"
)

// Store is a BadgerDB-backed cache store.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ storage.CacheStore = (*Store)(nil)

// badgerLoggerAdapter adapts slog.Logger to the badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens a Badger-backed cache store at the given path, creating the
// directory if needed. An empty path with inMemory=true opens an ephemeral
// in-memory store.
func Open(path string, inMemory bool) (*Store, error) {
	logger := slog.Default().With("component", "badgercache")

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(path, 0o755); err != nil {
					return nil, err
				}
				info, err = os.Stat(path)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", path)
		}
		opts = badger.DefaultOptions(path)
	}

	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// withTx executes fn within a transaction, discarding it on error.
func (s *Store) withTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := s.db.NewTransaction(isWrite)
	defer tx.Discard()
	if err := fn(tx); err != nil {
		return err
	}
	if isWrite {
		return tx.Commit()
	}
	return nil
}

// Load reads and decodes the cached corpus blob.
func (s *Store) Load(ctx context.Context) (*core.Corpus, error) {
	if s.db.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var corpus *core.Corpus
	err := s.withTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(corpusKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			corpus, err = storage.UnmarshalCorpus(val)
			return err
		})
	}, false)

	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrCacheMiss
		}
		if errors.Is(err, storage.ErrCorruptCache) || errors.Is(err, storage.ErrSchemaMismatch) {
			s.logger.Warn("cached corpus unreadable, treating as miss", "error", err)
			return nil, fmt.Errorf("%w: %w", storage.ErrCacheMiss, err)
		}
		return nil, err
	}
	return corpus, nil
}

// Meta reads the sidecar document without loading the corpus blob.
func (s *Store) Meta(ctx context.Context) (*storage.Meta, error) {
	if s.db.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var meta storage.Meta
	err := s.withTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(metaKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return sonic.Unmarshal(val, &meta)
		})
	}, false)

	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrCacheMiss
		}
		s.logger.Warn("cache sidecar unreadable, treating as miss", "error", err)
		return nil, fmt.Errorf("%w: %w", storage.ErrCacheMiss, err)
	}
	if meta.SchemaVersion != storage.SchemaVersion {
		return nil, fmt.Errorf("%w: sidecar version %d, want %d",
			storage.ErrCacheMiss, meta.SchemaVersion, storage.SchemaVersion)
	}
	return &meta, nil
}

// Save persists blob and sidecar in one transaction.
func (s *Store) Save(ctx context.Context, corpus *core.Corpus, fp *core.Fingerprint, processed map[string]core.ProcessedRecord) error {
	if corpus == nil {
		return storage.ErrNilCorpus
	}
	if s.db.IsClosed() {
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
	blob := storage.MarshalCorpus(corpus)

	err = s.withTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(corpusKey), blob); err != nil {
			return err
		}
		return tx.Set([]byte(metaKey), sidecar)
	}, true)
	if err != nil {
		return fmt.Errorf("saving cache: %w", err)
	}

	s.logger.Debug("cache saved",
		"chunks", corpus.Len(),
		"processed_units", len(processed))
	return nil
}

// Invalidate deletes blob and sidecar. Missing keys are not an error.
func (s *Store) Invalidate(ctx context.Context) error {
	if s.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.withTx(func(tx *badger.Txn) error {
		for _, key := range []string{metaKey, corpusKey} {
			if err := tx.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	}, true)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
