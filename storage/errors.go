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


package storage

import "errors"

var (
	// ErrCacheMiss indicates no usable cached corpus exists. Missing files,
	// corrupt blobs and schema mismatches all surface as a miss so callers
	// fall back to a full rebuild instead of failing.
	ErrCacheMiss = errors.New("cache miss")

	// ErrSchemaMismatch indicates a persisted blob was written with a
	// different schema version.
	ErrSchemaMismatch = errors.New("cache schema mismatch")

	// ErrCorruptCache indicates a persisted blob or sidecar failed to decode.
	ErrCorruptCache = errors.New("corrupt cache")

	// ErrStorageClosed indicates the cache store has been closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrNilCorpus indicates Save was called without a corpus.
	ErrNilCorpus = errors.New("corpus cannot be nil")
)
