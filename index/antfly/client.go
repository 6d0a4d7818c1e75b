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

// Package antfly implements index.SyncClient against an AntflyDB table.
package antfly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/antflydb/antfly-go/antfly"
	"github.com/poiesic/corpusit/core"
	"github.com/poiesic/corpusit/index"
)

// Config holds connection settings for an Antfly cluster.
type Config struct {
	// BaseURL is the cluster endpoint, e.g. "http://localhost:8080".
	BaseURL string

	// Table is the table chunks are written to.
	Table string

	// Index is the semantic index queried for similarity search.
	Index string
}

// Validate checks the configuration is complete.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("antfly config: BaseURL is required")
	}
	if c.Table == "" {
		return errors.New("antfly config: Table is required")
	}
	if c.Index == "" {
		return errors.New("antfly config: Index is required")
	}
	return nil
}

// Client is an Antfly-backed index.SyncClient.
type Client struct {
	af     *antfly.AntflyClient
	table  string
	index  string
	logger *slog.Logger
}

var _ index.SyncClient = (*Client)(nil)

// NewClient creates a sync client for the configured table. A nil httpClient
// falls back to http.DefaultClient.
func NewClient(config *Config, httpClient *http.Client) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	af, err := antfly.NewAntflyClient(config.BaseURL, httpClient)
	if err != nil {
		return nil, fmt.Errorf("creating antfly client: %w", err)
	}

	return &Client{
		af:     af,
		table:  config.Table,
		index:  config.Index,
		logger: slog.Default().With("component", "antfly-sync"),
	}, nil
}

// UpsertBatch writes chunks to the table keyed by chunk ID.
func (c *Client) UpsertBatch(ctx context.Context, chunks []core.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	inserts := make(map[string]any, len(chunks))
	for i := range chunks {
		inserts[chunks[i].ID] = chunkDocument(&chunks[i])
	}

	result, err := c.af.Batch(ctx, c.table, antfly.BatchRequest{Inserts: inserts})
	if err != nil {
		return 0, fmt.Errorf("batch insert: %w", err)
	}
	if len(result.Failed) > 0 {
		c.logger.Warn("batch had failed operations", "failed", len(result.Failed))
	}
	return result.Inserted, nil
}

// Delete removes chunks by ID.
func (c *Client) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := c.af.Batch(ctx, c.table, antfly.BatchRequest{Deletes: ids})
	if err != nil {
		return 0, fmt.Errorf("batch delete: %w", err)
	}
	return result.Deleted, nil
}

// Query runs a semantic search against the configured index.
func (c *Client) Query(ctx context.Context, text string, opts index.QueryOptions) ([]index.QueryResult, error) {
	limit := opts.TopK
	if limit <= 0 {
		limit = 10
	}

	res, err := c.af.Query(ctx, antfly.QueryRequest{
		Table:          c.table,
		Indexes:        []string{c.index},
		SemanticSearch: text,
		Fields:         []string{"id", "title", "content", "category", "source_file"},
		Limit:          limit,
	})
	if err != nil {
		return nil, fmt.Errorf("semantic query: %w", err)
	}
	if res == nil || len(res.Responses) == 0 {
		return nil, errors.New("query returned no responses")
	}
	if res.Responses[0].Error != "" {
		return nil, fmt.Errorf("query failed: %s", res.Responses[0].Error)
	}

	var results []index.QueryResult
	for _, hit := range res.Responses[0].Hits.Hits {
		qr := resultFromSource(hit.Source, float64(hit.Score))
		if opts.MinScore > 0 && qr.Score < opts.MinScore {
			continue
		}
		if opts.Category != "" && qr.Category != opts.Category {
			continue
		}
		results = append(results, qr)
	}
	return results, nil
}

// Close is a no-op; the underlying HTTP client is shared.
func (c *Client) Close() error {
	return nil
}

// chunkDocument maps a chunk to the document shape stored in the table.
func chunkDocument(chunk *core.Chunk) map[string]any {
	doc := map[string]any{
		"id":          chunk.ID,
		"title":       chunk.Title,
		"content":     chunk.Content,
		"category":    chunk.Category,
		"subcategory": chunk.Subcategory,
		"source_file": chunk.SourceFile,
		"tags":        chunk.Tags,
		"metadata":    chunk.Metadata,
	}
	if chunk.IsSplit() {
		doc["parent_id"] = chunk.ParentID
		doc["ordinal"] = chunk.Ordinal
	}
	return doc
}

// resultFromSource reads a hit's source document back into a QueryResult.
func resultFromSource(source map[string]any, score float64) index.QueryResult {
	qr := index.QueryResult{Score: score}
	if v, ok := source["id"].(string); ok {
		qr.ID = v
	}
	if v, ok := source["title"].(string); ok {
		qr.Title = v
	}
	if v, ok := source["content"].(string); ok {
		qr.Content = v
	}
	if v, ok := source["category"].(string); ok {
		qr.Category = v
	}
	if v, ok := source["source_file"].(string); ok {
		qr.SourceFile = v
	}
	return qr
}
