package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// chunkIDBytes is the width of a chunk identity hash in bytes.
// Hex-encoded identities are twice this length.
const chunkIDBytes = 8

// idBodyPrefixLen is how much of the chunk body participates in identity
// hashing. Bounding it keeps identity computation cheap for large bodies
// while still reacting to any edit near the top of the content.
const idBodyPrefixLen = 100

// ChunkID derives a deterministic identity for a chunk from its source URL,
// title, body prefix and originating file name using BLAKE2b hashing.
// Identical inputs always produce the same identity, so reprocessing an
// unchanged unit never creates a new chunk.
func ChunkID(url, title, body, sourceFile string) string {
	if len(body) > idBodyPrefixLen {
		body = body[:idBodyPrefixLen]
	}
	h, _ := blake2b.New(chunkIDBytes, nil)
	h.Write([]byte(url))
	h.Write([]byte(title))
	h.Write([]byte(body))
	h.Write([]byte(sourceFile))
	return hex.EncodeToString(h.Sum(nil))
}

// HashStrings computes a BLAKE2b digest over the given strings in order,
// with a zero byte between parts so adjacent values cannot collide.
// Used for directory fingerprints.
func HashStrings(parts ...string) string {
	h, _ := blake2b.New(chunkIDBytes, nil)
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ContentUnit is a single scraped source file, identified by its path
// relative to the source directory. Units are recomputed on every scan and
// never persisted on their own.
type ContentUnit struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// RawRecord is the decoded form of one scraped content file.
// Title, Content and URL are required by the pipeline; the remaining fields
// are optional scrape artifacts. Extra carries any keys the scraper emitted
// beyond the tagged fields; the decoder fills it and scalar values carry
// through into chunk metadata.
type RawRecord struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	URL        string   `json:"url"`
	Headings   []string `json:"headings,omitempty"`
	Links      []string `json:"links,omitempty"`
	CodeBlocks []string `json:"code_blocks,omitempty"`
	Images     []string `json:"images,omitempty"`
	ScrapedAt  string   `json:"scraped_at,omitempty"`

	Extra map[string]any `json:"-"`
}

// Chunk is a bounded, indexable unit of text derived from a content unit.
// A chunk may be one of several ordered sub-chunks of an oversized unit, in
// which case ParentID and Ordinal link it back to its parent.
type Chunk struct {
	ID          string
	Title       string
	Content     string
	Category    string
	Subcategory string
	SourceFile  string
	Tags        []string
	Metadata    map[string]string
	ParentID    string
	Ordinal     int
}

// IsSplit reports whether the chunk is a sub-chunk produced by splitting.
func (c *Chunk) IsSplit() bool {
	return c.ParentID != ""
}

// ProcessedRecord tracks when a content unit was last successfully processed
// and the modification time observed at that point. Records for units that
// have since been removed are tolerated as stale, not treated as corruption.
type ProcessedRecord struct {
	ModTime     time.Time `json:"mod_time"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Fingerprint is a cheap structural summary of a source directory, used to
// decide cache trust without reading file contents.
type Fingerprint struct {
	UnitCount int       `json:"unit_count"`
	TotalSize int64     `json:"total_size"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

// Equal reports whether two fingerprints describe the same directory state.
// Only unit count and hash participate; CreatedAt is freshness, not identity.
func (f *Fingerprint) Equal(other *Fingerprint) bool {
	if f == nil || other == nil {
		return false
	}
	return f.UnitCount == other.UnitCount && f.Hash == other.Hash
}

// Corpus is the full set of knowledge chunks derived from a source
// directory, plus aggregate category counts and the processing timestamp.
// The chunk set is unordered and keyed by chunk identity.
type Corpus struct {
	Chunks         []Chunk
	CategoryCounts map[string]int
	ProcessedAt    time.Time
}

// Len returns the number of chunks in the corpus.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Chunks)
}

// Index returns the corpus chunks keyed by identity.
func (c *Corpus) Index() map[string]*Chunk {
	idx := make(map[string]*Chunk, len(c.Chunks))
	for i := range c.Chunks {
		idx[c.Chunks[i].ID] = &c.Chunks[i]
	}
	return idx
}
