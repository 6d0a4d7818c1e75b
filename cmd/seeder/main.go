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

// Seeder writes a directory of synthetic scraped documentation units for
// exercising the pipeline without a real scrape.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/poiesic/corpusit/core"
)

type seedUnit struct {
	file     string
	title    string
	url      string
	content  string
	headings []string
}

var units = []seedUnit{
	{
		file:     "api_authentication.json",
		title:    "API authentication",
		url:      "https://docs.example.com/api/authentication",
		content:  "Every API request must carry an API key in the X-API-KEY header. Keys are created per user in the settings panel and can be scoped to read-only access. Revoking a key takes effect immediately; requests signed with a revoked key receive a 401 response.",
		headings: []string{"Creating keys", "Scopes", "Revocation"},
	},
	{
		file:     "api_pagination.json",
		title:    "API pagination",
		url:      "https://docs.example.com/api/pagination",
		content:  "List endpoints return at most 100 items per call. Pass the cursor from the previous response to fetch the next page. Cursors expire after ten minutes, after which the listing must restart from the beginning.",
		headings: []string{"Cursors", "Limits"},
	},
	{
		file:     "nodes_http_request.json",
		title:    "HTTP Request node",
		url:      "https://docs.example.com/nodes/http-request",
		content:  "The HTTP Request node calls arbitrary endpoints from a workflow. It supports all common verbs, custom headers, query parameter templating and both JSON and form-encoded bodies. Responses are parsed automatically when the content type allows it.",
		headings: []string{"Options", "Templating", "Response handling"},
	},
	{
		file:     "nodes_webhook.json",
		title:    "Webhook node",
		url:      "https://docs.example.com/nodes/webhook",
		content:  "The Webhook node starts a workflow when an HTTP request arrives at its generated URL. Test URLs are active only while the editor listens; production URLs require the workflow to be active. Payloads larger than the configured limit are rejected.",
		headings: []string{"Test vs production", "Payload limits"},
	},
	{
		file:     "credentials_overview.json",
		title:    "Credentials overview",
		url:      "https://docs.example.com/credentials/overview",
		content:  "Credentials store the secrets integrations use to authenticate. They are encrypted at rest with the instance key and never leave the server; the editor only ever references them by ID. Sharing a credential grants use, not the ability to read its values.",
		headings: []string{"Encryption", "Sharing"},
	},
	{
		file:     "workflows_error_handling.json",
		title:    "Workflow error handling",
		url:      "https://docs.example.com/workflows/error-handling",
		content:  "A failing node stops the workflow by default. Configure a node to continue on fail to route its error output down a separate branch, or attach an error workflow that is triggered with the failure context whenever any execution fails.",
		headings: []string{"Continue on fail", "Error workflows"},
	},
	{
		file:     "hosting_docker.json",
		title:    "Docker deployment",
		url:      "https://docs.example.com/hosting/docker",
		content:  "Run the platform with the official image and a mounted data volume. Configuration happens through environment variables; the container exits on startup when a required variable is missing. For clustered deployments, point all instances at the same database.",
		headings: []string{"Volumes", "Environment", "Clustering"},
	},
	{
		file:     "guides_first_workflow.json",
		title:    "Building your first workflow",
		url:      "https://docs.example.com/guides/first-workflow",
		content:  "This guide walks through a minimal workflow: a schedule trigger, an HTTP request and a filter. " + strings.Repeat("Each step explains the node configuration in detail and shows the data produced, so you can follow along in your own editor. ", 12),
		headings: []string{"Trigger", "Request", "Filter"},
	},
	{
		file:     "glossary_terms.json",
		title:    "Glossary",
		url:      "https://docs.example.com/glossary",
		content:  "A workflow is a directed graph of nodes. An execution is one run of a workflow. A trigger is the node that starts an execution. An expression references data from earlier nodes inside a field.",
		headings: []string{"Workflow", "Execution", "Trigger", "Expression"},
	},
}

var (
	outDir = flag.String("out", "./seed_data", "directory to write seed units into")
	limit  = flag.Int("limit", 0, "number of units to write (0 writes all)")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

func main() {
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		panic(err)
	}

	n := len(units)
	if *limit > 0 && *limit < n {
		n = *limit
	}

	scrapedAt := time.Now().UTC().Format(time.RFC3339)
	for _, unit := range units[:n] {
		record := core.RawRecord{
			Title:     unit.title,
			Content:   unit.content,
			URL:       unit.url,
			Headings:  unit.headings,
			ScrapedAt: scrapedAt,
		}

		data, err := sonic.Marshal(&record)
		if err != nil {
			panic(err)
		}
		if err := os.WriteFile(filepath.Join(*outDir, unit.file), data, 0o644); err != nil {
			panic(err)
		}
		slog.Info("wrote seed unit", "file", unit.file, "bytes", len(data))
	}

	fmt.Printf("wrote %d units to %s\n", n, *outDir)
}
