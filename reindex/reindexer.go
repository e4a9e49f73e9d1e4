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

package reindex

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/recallit/ai"
	"github.com/poiesic/recallit/core"
	"github.com/poiesic/recallit/storage"
)

// Config holds configuration for the reindexing operation.
type Config struct {
	// BatchSize is the number of entries to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of entries)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reindexer re-embeds every entry in the index with the configured embedder.
type Reindexer struct {
	repo     storage.IndexRepository
	embedder ai.Embedder
	config   *Config
	progress io.Writer
}

// NewReindexer creates a new reindexer.
// progress: where to write progress output (typically os.Stderr)
func NewReindexer(repo storage.IndexRepository, embedder ai.Embedder, config *Config, progress io.Writer) *Reindexer {
	if config == nil {
		config = DefaultConfig()
	}

	return &Reindexer{
		repo:     repo,
		embedder: embedder,
		config:   config,
		progress: progress,
	}
}

// Run executes the reindexing operation. Every stored entry is re-embedded
// with the configured embedder and written back, and the collection metadata
// is switched to the new model.
//
// The metadata switches before the first batch is written so every rewrite
// validates against the new dimension. A run that fails partway leaves the
// index mixed; re-running completes it, since re-embedding is idempotent per
// entry.
func (r *Reindexer) Run(ctx context.Context) error {
	totalEntries, err := r.repo.CountEntries(ctx)
	if err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}

	if totalEntries == 0 {
		fmt.Fprintf(r.progress, "No entries found in index (0 entries)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reindexing of %d entries with model %q (batch size: %d)\n",
		totalEntries, r.embedder.Model(), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, totalEntries, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	metadataUpdated := false

	err = r.repo.ForEachEntry(ctx, r.config.BatchSize, func(entries []*core.IndexEntry) error {
		texts := make([]string, len(entries))
		for i, entry := range entries {
			texts[i] = entry.Text
		}

		var vectors [][]float32
		err := RetryWithBackoff(ctx, func() error {
			var embedErr error
			vectors, embedErr = r.embedder.EmbedTexts(ctx, texts)
			return embedErr
		}, r.config.MaxRetries, r.config.RetryDelay)
		if err != nil {
			return fmt.Errorf("failed to embed batch: %w", err)
		}
		if len(vectors) != len(entries) {
			return fmt.Errorf("%w: got %d for %d entries", ErrVectorCountMismatch, len(vectors), len(entries))
		}

		for i, entry := range entries {
			entry.Vector = core.NormalizeVector(vectors[i])
		}

		if !metadataUpdated {
			if err := r.repo.SetCollectionModel(ctx, r.embedder.Model(), len(vectors[0])); err != nil {
				return fmt.Errorf("failed to update collection metadata: %w", err)
			}
			metadataUpdated = true
		}

		err = RetryWithBackoff(ctx, func() error {
			return r.repo.UpsertEntries(ctx, entries...)
		}, r.config.MaxRetries, r.config.RetryDelay)
		if err != nil {
			return fmt.Errorf("failed to store batch: %w", err)
		}

		processed += len(entries)
		tracker.Update(processed)
		return nil
	})
	if err != nil {
		return err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reindexing complete. Processed %d entries in %v (%.1f entries/sec)\n",
		totalEntries, elapsed.Round(time.Second), float64(totalEntries)/elapsed.Seconds())

	return nil
}
