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


// Package storage provides the cache persistence layer for corpusit.
//
// It defines the CacheStore interface that decouples cache persistence from
// pipeline logic, along with the versioned MUS serialization used for corpus
// blobs. Two backends implement the interface:
//
//   - filecache: a blob file plus JSON sidecar with write-temp-then-rename
//     atomicity
//   - badgercache: a BadgerDB-backed store with transactional saves
//
// # Cache miss semantics
//
// A missing cache, a corrupt blob and a schema-version mismatch all surface
// as ErrCacheMiss. Callers treat a miss as "rebuild from source", never as a
// fatal error, so a damaged cache degrades to one full reprocessing run.
//
// # Thread safety
//
// All CacheStore implementations must be safe for concurrent use. Save is
// atomic from the caller's perspective: a reader either observes the
// previous complete corpus or the new one, never a partial write.
package storage
