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

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/poiesic/corpusit"
	"github.com/poiesic/corpusit/embed"
	"github.com/poiesic/corpusit/embed/openai"
	"github.com/poiesic/corpusit/index"
	"github.com/poiesic/corpusit/index/antfly"
	"github.com/poiesic/corpusit/index/local"
	"github.com/poiesic/corpusit/storage/badgercache"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "corpusit",
		Usage: "Knowledge corpus processing and caching pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:     "source",
				Aliases:  []string{"s"},
				Usage:    "Directory of scraped JSON source units",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "cache",
				Aliases: []string{"c"},
				Usage:   "Directory for the corpus cache",
				Value:   ".corpusit-cache",
			},
			&cli.StringFlag{
				Name:  "cache-backend",
				Usage: "Cache backend (file or badger)",
				Value: "file",
			},
			&cli.StringFlag{
				Name:  "antfly-url",
				Usage: "AntflyDB endpoint for sync and query commands",
			},
			&cli.StringFlag{
				Name:  "antfly-table",
				Usage: "AntflyDB table name",
				Value: "corpus",
			},
			&cli.StringFlag{
				Name:  "antfly-index",
				Usage: "AntflyDB semantic index name",
				Value: "semantic",
			},
			&cli.StringFlag{
				Name:  "embed-host",
				Usage: "OpenAI-compatible embedding host for the in-process index",
			},
			&cli.StringFlag{
				Name:  "embed-model",
				Usage: "Embedding model name",
				Value: "embeddinggemma",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Build the corpus, serving from cache when fresh",
				Action: buildCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Rebuild from source even when the cache is fresh",
					},
				},
			},
			{
				Name:   "update",
				Usage:  "Reprocess only new and changed source units",
				Action: updateCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show cache state and corpus shape",
				Action: statsCommand,
			},
			{
				Name:   "invalidate",
				Usage:  "Drop the cached corpus",
				Action: invalidateCommand,
			},
			{
				Name:   "sync",
				Usage:  "Push the full corpus to the search index",
				Action: syncCommand,
			},
			{
				Name:      "query",
				Usage:     "Run a semantic query against the search index",
				ArgsUsage: "<query text>",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Maximum number of hits",
						Value:   10,
					},
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Drop hits scoring below this threshold",
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Restrict hits to one category",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newService builds a Service from the global flags. The caller must Close
// it. localIndex reports that queries run against an in-process index that
// must be filled by a sync in the same invocation.
func newService(c *cli.Context) (svc *corpusit.Service, localIndex bool, err error) {
	var opts []corpusit.ServiceOption

	switch backend := c.String("cache-backend"); backend {
	case "file":
	case "badger":
		store, err := badgercache.Open(c.String("cache"), false)
		if err != nil {
			return nil, false, fmt.Errorf("opening badger cache: %w", err)
		}
		opts = append(opts, corpusit.WithCacheStore(store))
	default:
		return nil, false, fmt.Errorf("unknown cache backend %q: must be file or badger", backend)
	}

	switch {
	case c.String("antfly-url") != "":
		client, err := antfly.NewClient(&antfly.Config{
			BaseURL: c.String("antfly-url"),
			Table:   c.String("antfly-table"),
			Index:   c.String("antfly-index"),
		}, nil)
		if err != nil {
			return nil, false, fmt.Errorf("creating antfly client: %w", err)
		}
		opts = append(opts, corpusit.WithIndexClient(client))

	case c.String("embed-host") != "":
		embedder, err := openai.NewEmbedder(embed.NewConfig(
			embed.WithHost(c.String("embed-host")),
			embed.WithModel(c.String("embed-model")),
		))
		if err != nil {
			return nil, false, fmt.Errorf("creating embedder: %w", err)
		}
		idx, err := local.New(embedder)
		if err != nil {
			return nil, false, err
		}
		opts = append(opts, corpusit.WithIndexClient(idx))
		localIndex = true
	}

	svc, err = corpusit.New(c.String("source"), c.String("cache"), opts...)
	return svc, localIndex, err
}

func buildCommand(c *cli.Context) error {
	svc, _, err := newService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	corpus, err := svc.Corpus(context.Background(), c.Bool("force"))
	if err != nil {
		return fmt.Errorf("building corpus: %w", err)
	}

	fmt.Printf("corpus ready: %d chunks across %d categories\n",
		corpus.Len(), len(corpus.CategoryCounts))
	return nil
}

func updateCommand(c *cli.Context) error {
	svc, _, err := newService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	corpus, err := svc.Update(context.Background())
	if err != nil {
		return fmt.Errorf("updating corpus: %w", err)
	}

	fmt.Printf("corpus updated: %d chunks\n", corpus.Len())
	return nil
}

func statsCommand(c *cli.Context) error {
	svc, _, err := newService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	stats, err := svc.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	fmt.Printf("cache exists:  %v\n", stats.CacheExists)
	fmt.Printf("cache valid:   %v\n", stats.CacheValid)
	fmt.Printf("total chunks:  %d\n", stats.TotalChunks)
	if !stats.LastProcessedAt.IsZero() {
		fmt.Printf("processed at:  %s\n", stats.LastProcessedAt.Format("2006-01-02 15:04:05 MST"))
	}

	if len(stats.CategoryCounts) > 0 {
		categories := make([]string, 0, len(stats.CategoryCounts))
		for category := range stats.CategoryCounts {
			categories = append(categories, category)
		}
		sort.Strings(categories)

		fmt.Println("categories:")
		for _, category := range categories {
			fmt.Printf("  %-20s %d\n", category, stats.CategoryCounts[category])
		}
	}
	return nil
}

func invalidateCommand(c *cli.Context) error {
	svc, _, err := newService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.InvalidateAll(context.Background()); err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	fmt.Println("cache invalidated")
	return nil
}

func syncCommand(c *cli.Context) error {
	svc, _, err := newService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	stats, err := svc.Sync(context.Background())
	if err != nil {
		return fmt.Errorf("syncing index: %w", err)
	}

	fmt.Printf("synced %d chunks in %d batches\n", stats.Upserted, stats.Batches)
	return nil
}

func queryCommand(c *cli.Context) error {
	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" {
		return fmt.Errorf("query text is required")
	}

	svc, localIndex, err := newService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	// An in-process index starts empty and must be filled before querying.
	if localIndex {
		if _, err := svc.Sync(context.Background()); err != nil {
			return fmt.Errorf("syncing local index: %w", err)
		}
	}

	results, err := svc.Query(context.Background(), text, index.QueryOptions{
		TopK:     c.Int("top-k"),
		MinScore: c.Float64("min-score"),
		Category: c.String("category"),
	})
	if err != nil {
		return fmt.Errorf("querying index: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%2d. [%.3f] %s (%s)\n", i+1, r.Score, r.Title, r.Category)
		fmt.Printf("    %s\n", firstLine(r.Content, 120))
	}
	return nil
}

func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
