package storage

import (
	"context"

	"github.com/poiesic/recallit/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// IndexRepository provides operations for managing the vector index.
//
// The repository persists one collection: a set of IndexEntries plus the
// collection metadata (name, metric, embedding model, dimension). Entries are
// keyed by their deterministic IDs, so upserting the same logical chunk twice
// overwrites rather than duplicates.
type IndexRepository interface {
	Repository

	// EnsureCollection records the collection metadata on first use and
	// verifies it on subsequent calls. A differing embedding model returns
	// ErrModelMismatch; a differing dimension returns ErrDimensionMismatch.
	EnsureCollection(ctx context.Context, name, embeddingModel string, dimension int) error

	// Collection returns the persisted collection metadata.
	// Returns ErrNotFound if no collection has been created yet.
	Collection(ctx context.Context) (*core.CollectionInfo, error)

	// HasDocument reports whether any entry carries the given document ID.
	// Used to skip re-ingestion of whole documents.
	HasDocument(ctx context.Context, documentID string) (bool, error)

	// UpsertEntries inserts or overwrites entries by their IDs.
	// The whole batch is written in a single transaction: either every entry
	// lands or the error is reported and nothing is committed.
	// Entries whose vector length differs from the collection dimension are
	// rejected with ErrDimensionMismatch before anything is written.
	UpsertEntries(ctx context.Context, entries ...*core.IndexEntry) error

	// QueryNearest returns up to k entries nearest to the given vector by
	// cosine distance, most similar first. Ties keep insertion order.
	// A vector whose length differs from the collection dimension returns
	// ErrDimensionMismatch rather than silently wrong results.
	QueryNearest(ctx context.Context, vector []float32, k int) ([]*core.QueryMatch, error)

	// GetEntry retrieves a single entry by ID.
	// Returns ErrNotFound if the entry doesn't exist.
	GetEntry(ctx context.Context, id core.ID) (*core.IndexEntry, error)

	// GetDocumentEntries retrieves all entries of a document in chunk order.
	// Returns an empty slice if the document is not indexed.
	GetDocumentEntries(ctx context.Context, documentID string) ([]*core.IndexEntry, error)

	// DeleteEntries removes entries by their IDs.
	// Returns ErrNotFound if any entry doesn't exist.
	DeleteEntries(ctx context.Context, ids ...core.ID) error

	// DeleteDocument removes every entry of a document.
	// Returns ErrNotFound if the document is not indexed.
	DeleteDocument(ctx context.Context, documentID string) error

	// ListDocuments returns the IDs of all indexed documents in sorted order.
	ListDocuments(ctx context.Context) ([]string, error)

	// CountEntries returns the total number of entries in the collection.
	CountEntries(ctx context.Context) (int, error)

	// ForEachEntry iterates over all entries in batches of batchSize,
	// calling fn for each batch. Iteration stops on the first error from fn.
	ForEachEntry(ctx context.Context, batchSize int, fn func(entries []*core.IndexEntry) error) error

	// SetCollectionModel rewrites the persisted embedding model identity and
	// dimension. Only reindexing may call this, as part of regenerating every
	// stored vector with the new model.
	SetCollectionModel(ctx context.Context, embeddingModel string, dimension int) error
}
