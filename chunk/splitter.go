package chunk

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/poiesic/corpusit/core"
)

const (
	// DefaultMaxChunkSize is the default maximum sub-chunk size in characters.
	DefaultMaxChunkSize = 1000

	// DefaultOverlap is the default number of characters shared between
	// consecutive sub-chunks.
	DefaultOverlap = 200

	// boundaryMargin is how close to the window start the sentence-boundary
	// backscan may reach: the scan covers at most maxSize-boundaryMargin
	// characters.
	boundaryMargin = 100
)

// Splitter turns oversized chunks into ordered sequences of bounded
// sub-chunks with overlap. A Splitter is immutable and safe for concurrent
// use.
type Splitter struct {
	maxSize int
	overlap int
}

// NewSplitter creates a Splitter. overlap must be strictly smaller than
// maxSize; equal or larger overlap would stall the split loop and is
// rejected here rather than at split time.
func NewSplitter(maxSize, overlap int) (*Splitter, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: max size %d", ErrInvalidChunkSize, maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("%w: overlap %d with max size %d", ErrInvalidOverlap, overlap, maxSize)
	}
	return &Splitter{maxSize: maxSize, overlap: overlap}, nil
}

// Split returns the chunk unchanged when its body fits within maxSize.
// Otherwise it produces sub-chunks linked to the parent: identity
// {parent.ID}_part_{ordinal}, ordinals from 0, parent metadata copied with
// is_split and per-sub-chunk character count added. Windows that are blank
// after trimming are dropped without consuming an ordinal.
func (s *Splitter) Split(chunk core.Chunk) []core.Chunk {
	body := chunk.Content
	if len(body) <= s.maxSize {
		return []core.Chunk{chunk}
	}

	var subs []core.Chunk
	ordinal := 0
	start := 0
	for start < len(body) {
		end := start + s.maxSize
		if end >= len(body) {
			end = len(body)
		} else {
			end = s.scanBoundary(body, start, end)
		}

		window := body[start:end]
		if strings.TrimSpace(window) != "" {
			subs = append(subs, s.subChunk(&chunk, window, ordinal))
			ordinal++
		}

		if end >= len(body) {
			break
		}
		next := end - s.overlap
		if next <= start {
			// The boundary scan pulled end close enough to start that
			// overlapping would move the cursor backward.
			next = end
		}
		start = next
	}
	return subs
}

// scanBoundary walks backward from end looking for a sentence-ending
// character so windows break between sentences rather than inside one.
// The scan covers at most maxSize-boundaryMargin characters; when no
// boundary is found the raw end stands.
func (s *Splitter) scanBoundary(body string, start, end int) int {
	lowest := end - (s.maxSize - boundaryMargin)
	if lowest <= start {
		lowest = start + 1
	}
	for i := end - 1; i >= lowest; i-- {
		switch body[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	return end
}

func (s *Splitter) subChunk(parent *core.Chunk, window string, ordinal int) core.Chunk {
	meta := make(map[string]string, len(parent.Metadata)+2)
	maps.Copy(meta, parent.Metadata)
	meta["is_split"] = "true"
	meta["chunk_chars"] = strconv.Itoa(len(window))

	return core.Chunk{
		ID:          fmt.Sprintf("%s_part_%d", parent.ID, ordinal),
		Title:       parent.Title,
		Content:     window,
		Category:    parent.Category,
		Subcategory: parent.Subcategory,
		SourceFile:  parent.SourceFile,
		Tags:        slices.Clone(parent.Tags),
		Metadata:    meta,
		ParentID:    parent.ID,
		Ordinal:     ordinal,
	}
}
