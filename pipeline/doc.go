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

// Package pipeline orchestrates corpus builds.
//
// A Processor fans source units out over a long-lived ants worker pool. Each
// worker reads one JSON unit, decodes it, builds a chunk and splits it if
// oversized. Unit failures are isolated: a file that cannot be read or
// decoded is logged, counted and skipped, and the run continues.
//
// Two entry points exist. Process rebuilds everything. ProcessIncremental
// reprocesses only units that are new or have a newer mtime than their
// registry entry, then merges the result with the prior corpus, dropping
// chunks whose unit was reprocessed or deleted.
//
// Workers finish in arbitrary order; the collector assembles chunks in scan
// order so identical inputs always yield an identical corpus.
package pipeline
