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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recallit/ai"
	"github.com/poiesic/recallit/chunk"
	"github.com/poiesic/recallit/core"
	"github.com/poiesic/recallit/storage"
)

// State describes where a document stopped in the pipeline.
type State int

const (
	StatePending State = iota
	StateSkipped       // already indexed, nothing written
	StateChunked
	StateEmbedded
	StateStored
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSkipped:
		return "skipped"
	case StateChunked:
		return "chunked"
	case StateEmbedded:
		return "embedded"
	case StateStored:
		return "stored"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Result reports the outcome of ingesting one document.
type Result struct {
	DocumentID string
	State      State
	Chunks     int
	Elapsed    time.Duration
	Err        error
}

// DefaultPoolSize is the number of documents processed concurrently.
const DefaultPoolSize = 4

// CollectionName derives the collection identifier from a base name, tagging
// it with the similarity metric the way indexes are conventionally named.
func CollectionName(base string) string {
	return base + "-" + core.MetricCosine
}

// Pipeline ingests documents: split into overlapping chunks, embed each
// chunk, and store the resulting entries. Ingestion is idempotent at
// document granularity: a document that already has entries in the store is
// skipped unless force mode is enabled.
type Pipeline struct {
	repo       storage.IndexRepository
	embedder   ai.Embedder
	splitter   *chunk.Splitter
	collection string
	poolSize   int
	force      bool
	onResult   func(Result)
	logger     *slog.Logger

	ensureOnce sync.Once
	ensureErr  error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPoolSize sets how many documents are processed concurrently.
func WithPoolSize(n int) Option {
	return func(p *Pipeline) { p.poolSize = n }
}

// WithForce re-embeds and overwrites documents that are already indexed.
func WithForce(force bool) Option {
	return func(p *Pipeline) { p.force = force }
}

// WithSplitter replaces the default chunk splitter.
func WithSplitter(s *chunk.Splitter) Option {
	return func(p *Pipeline) { p.splitter = s }
}

// WithOnResult installs a callback invoked after each document finishes,
// from the worker goroutine that processed it.
func WithOnResult(fn func(Result)) Option {
	return func(p *Pipeline) { p.onResult = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// NewPipeline creates an ingestion pipeline writing to the named collection.
func NewPipeline(repo storage.IndexRepository, embedder ai.Embedder, collection string, opts ...Option) (*Pipeline, error) {
	splitter, err := chunk.NewSplitter(chunk.DefaultSize, chunk.DefaultOverlap)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		repo:       repo,
		embedder:   embedder,
		splitter:   splitter,
		collection: collection,
		poolSize:   DefaultPoolSize,
		logger:     slog.Default().With("component", "ingestion"),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.poolSize <= 0 {
		return nil, ErrInvalidPoolSize
	}
	return p, nil
}

// IngestAll processes documents concurrently through a worker pool.
// Failures are isolated: a failed document is reported in its Result and the
// remaining documents still run. The returned slice preserves input order.
func (p *Pipeline) IngestAll(ctx context.Context, docs []*core.Document) ([]Result, error) {
	results := make([]Result, len(docs))

	pool, err := ants.NewPool(p.poolSize)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		i, doc := i, doc
		submitErr := pool.Submit(func() {
			defer wg.Done()
			results[i] = p.IngestDocument(ctx, doc)
			if p.onResult != nil {
				p.onResult(results[i])
			}
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submitting document %q: %w", doc.ID, submitErr)
		}
	}
	wg.Wait()

	return results, nil
}

// IngestDocument runs a single document through the pipeline.
func (p *Pipeline) IngestDocument(ctx context.Context, doc *core.Document) Result {
	start := time.Now()
	result := Result{State: StatePending}
	if doc != nil {
		result.DocumentID = doc.ID
	}

	fail := func(err error) Result {
		result.State = StateFailed
		result.Err = err
		result.Elapsed = time.Since(start)
		p.logger.Error("document ingestion failed",
			"document_id", result.DocumentID, "error", err)
		return result
	}

	if err := core.ValidateDocument(doc); err != nil {
		return fail(err)
	}

	if p.force {
		// Drop existing entries so a shrunken document leaves no stale
		// trailing chunks behind.
		if err := p.repo.DeleteDocument(ctx, doc.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fail(fmt.Errorf("deleting existing entries: %w", err))
		}
	} else {
		exists, err := p.repo.HasDocument(ctx, doc.ID)
		if err != nil {
			return fail(fmt.Errorf("checking existing entries: %w", err))
		}
		if exists {
			p.logger.Debug("document already indexed, skipping", "document_id", doc.ID)
			result.State = StateSkipped
			result.Elapsed = time.Since(start)
			return result
		}
	}

	chunks := p.splitter.SplitDocument(*doc)
	result.State = StateChunked
	result.Chunks = len(chunks)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fail(fmt.Errorf("embedding %d chunks: %w", len(chunks), err))
	}
	if len(vectors) != len(chunks) {
		return fail(fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks)))
	}
	result.State = StateEmbedded

	entries := make([]*core.IndexEntry, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) == 0 {
			return fail(fmt.Errorf("%w: chunk %d", ErrEmptyVector, i))
		}
		entries[i] = &core.IndexEntry{
			Id:         core.EntryID(c.DocumentID, c.Index),
			DocumentID: c.DocumentID,
			ChunkIndex: c.Index,
			Text:       c.Text,
			Vector:     core.NormalizeVector(vectors[i]),
			Metadata:   map[string]string{core.MetaDocumentID: c.DocumentID},
		}
	}

	if err := p.ensureCollection(ctx, len(entries[0].Vector)); err != nil {
		return fail(err)
	}

	if err := p.repo.UpsertEntries(ctx, entries...); err != nil {
		return fail(fmt.Errorf("storing entries: %w", err))
	}

	result.State = StateStored
	result.Elapsed = time.Since(start)
	p.logger.Info("document indexed",
		"document_id", doc.ID, "chunks", len(chunks), "elapsed", result.Elapsed)
	return result
}

// ensureCollection records the collection metadata exactly once per pipeline.
// The dimension comes from the first embedded batch, so the metadata always
// reflects what the embedder actually produces.
func (p *Pipeline) ensureCollection(ctx context.Context, dimension int) error {
	p.ensureOnce.Do(func() {
		p.ensureErr = p.repo.EnsureCollection(ctx, p.collection, p.embedder.Model(), dimension)
	})
	return p.ensureErr
}
