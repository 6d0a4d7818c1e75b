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

package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/corpusit/chunk"
	"github.com/poiesic/corpusit/core"
	"github.com/poiesic/corpusit/scanner"
)

const maxPoolSize = 32

// Processor turns a source directory of scraped JSON units into a corpus of
// chunks, fanning unit work out over a long-lived worker pool.
type Processor struct {
	pool     *ants.Pool
	splitter *chunk.Splitter
	logger   *slog.Logger

	mu       sync.Mutex
	released bool
}

// Option configures a Processor.
type Option func(*Processor) error

// WithPoolSize sets the worker pool size. Default is NumCPU+4 capped at 32;
// unit work is read-dominated so the pool runs wider than the CPU count.
func WithPoolSize(size int) Option {
	return func(p *Processor) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithSplitter sets the chunk splitter used for oversized units.
func WithSplitter(splitter *chunk.Splitter) Option {
	return func(p *Processor) error {
		if splitter == nil {
			return fmt.Errorf("splitter cannot be nil")
		}
		p.splitter = splitter
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewProcessor creates a processor with a running worker pool.
func NewProcessor(opts ...Option) (*Processor, error) {
	poolSize := runtime.NumCPU() + 4
	if poolSize > maxPoolSize {
		poolSize = maxPoolSize
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	splitter, err := chunk.NewSplitter(chunk.DefaultMaxChunkSize, chunk.DefaultOverlap)
	if err != nil {
		pool.Release()
		return nil, err
	}

	p := &Processor{
		pool:     pool,
		splitter: splitter,
		logger:   slog.Default().With("component", "pipeline"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	return p, nil
}

// Release releases the worker pool. The processor must not be used after.
func (p *Processor) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return
	}
	p.released = true
	if p.pool != nil {
		p.pool.Release()
	}
}

// RunStats summarizes one processing run.
type RunStats struct {
	UnitsScanned    int
	UnitsProcessed  int
	UnitsSkipped    int
	UnitsFailed     int
	RecordsFiltered int
	ChunksBuilt     int
	ChunksSplit     int
	Duration        time.Duration
}

// Result is the outcome of a processing run: the corpus, the per-unit
// processed registry, and the fingerprint of the directory as scanned.
type Result struct {
	Corpus      *core.Corpus
	Processed   map[string]core.ProcessedRecord
	Fingerprint *core.Fingerprint
	Stats       RunStats
}

// unitResult carries one worker's output back to the collector.
type unitResult struct {
	chunks   []core.Chunk
	filtered int
	split    int
	err      error
}

// Process runs a full build: every unit in dir is read, decoded, chunked and
// split. A unit that fails to read or decode is logged and skipped, never
// fatal. Cancellation discards partial results and returns ctx.Err().
func (p *Processor) Process(ctx context.Context, dir string) (*Result, error) {
	started := time.Now()

	units, err := scanner.Scan(dir)
	if err != nil {
		return nil, err
	}

	result, err := p.run(ctx, dir, units, units)
	if err != nil {
		return nil, err
	}

	result.Stats.Duration = time.Since(started)
	p.logger.Info("full processing run complete",
		"units", result.Stats.UnitsScanned,
		"failed", result.Stats.UnitsFailed,
		"chunks", result.Corpus.Len(),
		"duration", result.Stats.Duration)
	return result, nil
}

// ProcessIncremental rebuilds only units that are new or have a strictly
// newer mtime than their registry entry, then merges the fresh chunks with
// the prior corpus. Chunks from deleted or reprocessed units are dropped.
func (p *Processor) ProcessIncremental(ctx context.Context, dir string, prior *core.Corpus, registry map[string]core.ProcessedRecord) (*Result, error) {
	if prior == nil || registry == nil {
		return nil, ErrNilPrior
	}
	started := time.Now()

	units, err := scanner.Scan(dir)
	if err != nil {
		return nil, err
	}

	changed := selectChanged(units, registry)
	result, err := p.run(ctx, dir, units, changed)
	if err != nil {
		return nil, err
	}

	merge(result, prior, registry, units)

	result.Stats.UnitsSkipped = len(units) - len(changed)
	result.Stats.Duration = time.Since(started)
	p.logger.Info("incremental processing run complete",
		"units", result.Stats.UnitsScanned,
		"reprocessed", len(changed),
		"skipped", result.Stats.UnitsSkipped,
		"failed", result.Stats.UnitsFailed,
		"chunks", result.Corpus.Len(),
		"duration", result.Stats.Duration)
	return result, nil
}

// selectChanged returns the units with no registry entry or a strictly newer
// mtime than the recorded one.
func selectChanged(units []core.ContentUnit, registry map[string]core.ProcessedRecord) []core.ContentUnit {
	var changed []core.ContentUnit
	for _, unit := range units {
		entry, ok := registry[unit.Path]
		if !ok || unit.ModTime.After(entry.ModTime) {
			changed = append(changed, unit)
		}
	}
	return changed
}

// run fans work units out over the pool and collects results in scan order.
func (p *Processor) run(ctx context.Context, dir string, scanned, work []core.ContentUnit) (*Result, error) {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return nil, ErrReleased
	}
	p.mu.Unlock()

	now := time.Now().UTC()
	results := make(map[string]*unitResult, len(work))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, unit := range work {
		unit := unit
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			res := p.processUnit(dir, unit)
			mu.Lock()
			results[unit.Path] = res
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			results[unit.Path] = &unitResult{err: err}
			mu.Unlock()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := RunStats{UnitsScanned: len(scanned)}
	processed := make(map[string]core.ProcessedRecord, len(work))
	var chunks []core.Chunk

	// Workers finish in arbitrary order; assembling in scan order keeps the
	// corpus deterministic for identical inputs.
	for _, unit := range work {
		res, ok := results[unit.Path]
		if !ok {
			continue
		}
		if res.err != nil {
			stats.UnitsFailed++
			p.logger.Warn("unit failed, skipping", "path", unit.Path, "error", res.err)
			continue
		}
		stats.UnitsProcessed++
		stats.RecordsFiltered += res.filtered
		stats.ChunksBuilt += len(res.chunks)
		stats.ChunksSplit += res.split
		chunks = append(chunks, res.chunks...)
		processed[unit.Path] = core.ProcessedRecord{
			ModTime:     unit.ModTime,
			ProcessedAt: now,
		}
	}

	corpus := &core.Corpus{
		Chunks:         chunks,
		CategoryCounts: countCategories(chunks),
		ProcessedAt:    now,
	}

	return &Result{
		Corpus:      corpus,
		Processed:   processed,
		Fingerprint: scanner.FingerprintUnits(scanned),
		Stats:       stats,
	}, nil
}

// processUnit reads one source file and turns it into zero or more chunks.
func (p *Processor) processUnit(dir string, unit core.ContentUnit) *unitResult {
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(unit.Path)))
	if err != nil {
		return &unitResult{err: fmt.Errorf("reading unit: %w", err)}
	}

	records, err := decodeRecords(data)
	if err != nil {
		return &unitResult{err: fmt.Errorf("decoding unit: %w", err)}
	}

	res := &unitResult{}
	for i := range records {
		if err := core.ValidateRawRecord(&records[i]); err != nil {
			res.filtered++
			p.logger.Debug("skipping invalid record", "path", unit.Path, "error", err)
			continue
		}
		built, ok := chunk.Build(&records[i], unit)
		if !ok {
			res.filtered++
			continue
		}
		parts := p.splitter.Split(*built)
		if len(parts) > 1 {
			res.split++
		}
		res.chunks = append(res.chunks, parts...)
	}
	return res
}

// knownRecordKeys are the tagged RawRecord fields; any other key a scraper
// emits lands in Extra.
var knownRecordKeys = map[string]struct{}{
	"title":       {},
	"content":     {},
	"url":         {},
	"headings":    {},
	"links":       {},
	"code_blocks": {},
	"images":      {},
	"scraped_at":  {},
}

// decodeRecords accepts either a single scraped record or an array of them.
func decodeRecords(data []byte) ([]core.RawRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty file", core.ErrInvalidRecord)
	}

	if trimmed[0] == '[' {
		var raws []json.RawMessage
		if err := sonic.Unmarshal(trimmed, &raws); err != nil {
			return nil, err
		}
		records := make([]core.RawRecord, 0, len(raws))
		for _, raw := range raws {
			record, err := decodeRecord(raw)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}
		return records, nil
	}

	record, err := decodeRecord(trimmed)
	if err != nil {
		return nil, err
	}
	return []core.RawRecord{record}, nil
}

// decodeRecord decodes one record, keeping unrecognized keys in Extra.
func decodeRecord(data []byte) (core.RawRecord, error) {
	var record core.RawRecord
	if err := sonic.Unmarshal(data, &record); err != nil {
		return core.RawRecord{}, err
	}

	var fields map[string]any
	if err := sonic.Unmarshal(data, &fields); err != nil {
		return core.RawRecord{}, err
	}
	for key := range fields {
		if _, known := knownRecordKeys[key]; known {
			delete(fields, key)
		}
	}
	if len(fields) > 0 {
		record.Extra = fields
	}
	return record, nil
}

// merge folds freshly processed chunks into the prior corpus. Prior chunks
// survive only if their unit still exists on disk and was not reprocessed
// this run; registry entries for deleted units are dropped.
func merge(result *Result, prior *core.Corpus, registry map[string]core.ProcessedRecord, units []core.ContentUnit) {
	existing := make(map[string]struct{}, len(units))
	for _, unit := range units {
		existing[unit.Path] = struct{}{}
	}

	var kept []core.Chunk
	for _, c := range prior.Chunks {
		if _, onDisk := existing[c.SourceFile]; !onDisk {
			continue
		}
		if _, reprocessed := result.Processed[c.SourceFile]; reprocessed {
			continue
		}
		kept = append(kept, c)
	}

	for path, entry := range registry {
		if _, onDisk := existing[path]; !onDisk {
			continue
		}
		if _, reprocessed := result.Processed[path]; reprocessed {
			continue
		}
		result.Processed[path] = entry
	}

	merged := make([]core.Chunk, 0, len(kept)+len(result.Corpus.Chunks))
	merged = append(merged, kept...)
	merged = append(merged, result.Corpus.Chunks...)

	result.Corpus.Chunks = merged
	result.Corpus.CategoryCounts = countCategories(merged)
}

func countCategories(chunks []core.Chunk) map[string]int {
	counts := make(map[string]int, 8)
	for _, c := range chunks {
		counts[c.Category]++
	}
	return counts
}
