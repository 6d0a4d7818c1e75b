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

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/corpusit/core"
)

// SchemaVersion identifies the corpus blob layout. It is written as a
// prefix of every blob; Load rejects any other version as a cache miss so
// schema evolution degrades to a rebuild instead of a crash.
const SchemaVersion = 1

var (
	tagsSer   = ord.NewSliceSer[string](ord.String)
	metaSer   = ord.NewMapSer[string, string](ord.String, ord.String)
	countsSer = ord.NewMapSer[string, int](ord.String, varint.Int)
	chunksSer = ord.NewSliceSer[core.Chunk](ChunkMUS)
)

// ChunkMUS is the MUS serializer for core.Chunk.
var ChunkMUS = chunkSer{}

var _ mus.Serializer[core.Chunk] = ChunkMUS

type chunkSer struct{}

func (chunkSer) Marshal(c core.Chunk, bs []byte) (n int) {
	n = ord.String.Marshal(c.ID, bs)
	n += ord.String.Marshal(c.Title, bs[n:])
	n += ord.String.Marshal(c.Content, bs[n:])
	n += ord.String.Marshal(c.Category, bs[n:])
	n += ord.String.Marshal(c.Subcategory, bs[n:])
	n += ord.String.Marshal(c.SourceFile, bs[n:])
	n += tagsSer.Marshal(c.Tags, bs[n:])
	n += metaSer.Marshal(c.Metadata, bs[n:])
	n += ord.String.Marshal(c.ParentID, bs[n:])
	n += varint.Int.Marshal(c.Ordinal, bs[n:])
	return n
}

func (chunkSer) Unmarshal(bs []byte) (c core.Chunk, n int, err error) {
	var n1 int
	if c.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if c.Title, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.Category, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.Subcategory, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.SourceFile, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.Tags, n1, err = tagsSer.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if len(c.Tags) == 0 {
		c.Tags = nil
	}
	if c.Metadata, n1, err = metaSer.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if len(c.Metadata) == 0 {
		c.Metadata = nil
	}
	if c.ParentID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.Ordinal, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	return
}

func (chunkSer) Size(c core.Chunk) (size int) {
	size = ord.String.Size(c.ID)
	size += ord.String.Size(c.Title)
	size += ord.String.Size(c.Content)
	size += ord.String.Size(c.Category)
	size += ord.String.Size(c.Subcategory)
	size += ord.String.Size(c.SourceFile)
	size += tagsSer.Size(c.Tags)
	size += metaSer.Size(c.Metadata)
	size += ord.String.Size(c.ParentID)
	size += varint.Int.Size(c.Ordinal)
	return size
}

func (s chunkSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// CorpusMUS is the MUS serializer for core.Corpus. Timestamps are stored as
// Unix microseconds and restored in UTC.
var CorpusMUS = corpusSer{}

var _ mus.Serializer[core.Corpus] = CorpusMUS

type corpusSer struct{}

func (corpusSer) Marshal(c core.Corpus, bs []byte) (n int) {
	n = varint.Int64.Marshal(c.ProcessedAt.UnixMicro(), bs)
	n += countsSer.Marshal(c.CategoryCounts, bs[n:])
	n += chunksSer.Marshal(c.Chunks, bs[n:])
	return n
}

func (corpusSer) Unmarshal(bs []byte) (c core.Corpus, n int, err error) {
	var (
		micros int64
		n1     int
	)
	if micros, n, err = varint.Int64.Unmarshal(bs); err != nil {
		return
	}
	c.ProcessedAt = time.UnixMicro(micros).UTC()
	if c.CategoryCounts, n1, err = countsSer.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if len(c.CategoryCounts) == 0 {
		c.CategoryCounts = nil
	}
	if c.Chunks, n1, err = chunksSer.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if len(c.Chunks) == 0 {
		c.Chunks = nil
	}
	return
}

func (corpusSer) Size(c core.Corpus) (size int) {
	size = varint.Int64.Size(c.ProcessedAt.UnixMicro())
	size += countsSer.Size(c.CategoryCounts)
	size += chunksSer.Size(c.Chunks)
	return size
}

func (s corpusSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// MarshalCorpus serializes a corpus to bytes with a leading schema version.
func MarshalCorpus(corpus *core.Corpus) []byte {
	buf := make([]byte, varint.Int.Size(SchemaVersion)+CorpusMUS.Size(*corpus))
	n := varint.Int.Marshal(SchemaVersion, buf)
	CorpusMUS.Marshal(*corpus, buf[n:])
	return buf
}

// UnmarshalCorpus deserializes a corpus from bytes, rejecting blobs written
// with a different schema version.
func UnmarshalCorpus(data []byte) (*core.Corpus, error) {
	version, n, err := varint.Int.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: reading version: %w", ErrCorruptCache, err)
	}
	if version != SchemaVersion {
		return nil, fmt.Errorf("%w: blob version %d, want %d", ErrSchemaMismatch, version, SchemaVersion)
	}
	corpus, _, err := CorpusMUS.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptCache, err)
	}
	return &corpus, nil
}

// MarshalChunk serializes a single chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, ChunkMUS.Size(*chunk))
	ChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a single chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, _, err := ChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}
