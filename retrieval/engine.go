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

package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/recallit/ai"
	"github.com/poiesic/recallit/core"
	"github.com/poiesic/recallit/storage"
)

// DefaultK is the number of chunks retrieved per query.
const DefaultK = 3

// Engine retrieves the stored chunks most similar to a query.
type Engine struct {
	repo     storage.IndexRepository
	embedder ai.Embedder
	k        int
	monitor  Monitor
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithK sets how many chunks a retrieval returns.
func WithK(k int) Option {
	return func(e *Engine) { e.k = k }
}

// WithMonitor installs a retrieval monitor.
func WithMonitor(m Monitor) Option {
	return func(e *Engine) { e.monitor = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates a retrieval engine over the given index.
func NewEngine(repo storage.IndexRepository, embedder ai.Embedder, opts ...Option) (*Engine, error) {
	e := &Engine{
		repo:     repo,
		embedder: embedder,
		k:        DefaultK,
		monitor:  NoopMonitor{},
		logger:   slog.Default().With("component", "retrieval"),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.k <= 0 {
		return nil, ErrInvalidK
	}
	return e, nil
}

// K returns the configured match count.
func (e *Engine) K() int { return e.k }

// Retrieve returns up to k chunks most similar to the query, most similar
// first. A blank query or an empty store yields no chunks and no error.
//
// The query is embedded with the engine's model; if the collection was
// indexed with a different model the retrieval fails with
// storage.ErrModelMismatch rather than returning silently wrong matches.
func (e *Engine) Retrieve(ctx context.Context, query string) ([]core.RetrievedChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	start := time.Now()
	e.monitor.RetrievalStarted(query, e.k)

	info, err := e.repo.Collection(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		// Nothing has been ingested yet.
		e.monitor.RetrievalCompleted(query, 0, time.Since(start))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading collection metadata: %w", err)
	}

	if info.EmbeddingModel != e.embedder.Model() {
		return nil, fmt.Errorf("%w: collection indexed with %q, querying with %q",
			storage.ErrModelMismatch, info.EmbeddingModel, e.embedder.Model())
	}

	vector, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := e.repo.QueryNearest(ctx, core.NormalizeVector(vector), e.k)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	chunks := make([]core.RetrievedChunk, len(matches))
	for i, match := range matches {
		chunks[i] = core.RetrievedChunk{
			Text:       match.Entry.Text,
			DocumentID: match.Entry.DocumentID,
			Distance:   match.Distance,
		}
	}

	elapsed := time.Since(start)
	e.monitor.RetrievalCompleted(query, len(chunks), elapsed)
	e.logger.Debug("retrieved chunks", "matches", len(chunks), "elapsed", elapsed)
	return chunks, nil
}

// CumulativeQuery joins the content of every user turn with single spaces,
// oldest first. Assistant and system turns are excluded so retrieval tracks
// what the user has been asking about across the whole conversation.
func CumulativeQuery(messages []core.Message) string {
	var parts []string
	for _, msg := range messages {
		if msg.Role == core.RoleUser {
			parts = append(parts, msg.Content)
		}
	}
	return strings.Join(parts, " ")
}
