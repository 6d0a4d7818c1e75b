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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidRecord indicates a RawRecord failed validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrContentTooShort indicates the content is below the minimum length.
	ErrContentTooShort = errors.New("content below minimum length")

	// ErrEmptyID indicates the chunk ID field is empty.
	ErrEmptyID = errors.New("chunk id cannot be empty")

	// ErrEmptyCategory indicates the chunk Category field is empty.
	ErrEmptyCategory = errors.New("chunk category cannot be empty")

	// ErrEmptySourceFile indicates the chunk SourceFile field is empty.
	ErrEmptySourceFile = errors.New("chunk source file cannot be empty")
)
