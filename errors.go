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

import "errors"

var (
	// ErrSourceDirRequired indicates New was called without a source directory.
	ErrSourceDirRequired = errors.New("source directory is required")

	// ErrCacheDirRequired indicates New was called without a cache directory
	// or an explicit cache store.
	ErrCacheDirRequired = errors.New("cache directory is required")

	// ErrNoIndex indicates a query or sync was requested but no index client
	// is configured.
	ErrNoIndex = errors.New("no index client configured")

	// ErrClosed indicates the service has been closed.
	ErrClosed = errors.New("service is closed")
)
