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

import (
	"fmt"
	"strings"
)

// MinContentLength is the minimum trimmed content length, in characters, for
// a record to produce a chunk. Shorter records are filtered out, not errors.
const MinContentLength = 50

// HasUsableContent reports whether a raw record carries enough content to
// become a chunk.
func HasUsableContent(record *RawRecord) bool {
	if record == nil {
		return false
	}
	return len(strings.TrimSpace(record.Content)) >= MinContentLength
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Content must not be empty and must meet MinContentLength, unless the
//     chunk is a split sub-chunk (sub-chunk tails may be short)
//   - Category must not be empty
//   - SourceFile must not be empty
//
// NOT validated:
//   - Tags and Metadata (optional enrichment)
//   - Ordinal (0 is valid for both parents and first sub-chunks)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyID)
	}

	trimmed := strings.TrimSpace(chunk.Content)
	if trimmed == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}
	if !chunk.IsSplit() && len(trimmed) < MinContentLength {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrContentTooShort)
	}

	if chunk.Category == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyCategory)
	}

	if chunk.SourceFile == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptySourceFile)
	}

	return nil
}

// ValidateRawRecord validates the required fields of a decoded record.
// Records failing validation are skipped by the pipeline with a log entry.
func ValidateRawRecord(record *RawRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}
	if strings.TrimSpace(record.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyContent)
	}
	return nil
}
