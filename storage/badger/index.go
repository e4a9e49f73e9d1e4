package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recallit/core"
	"github.com/poiesic/recallit/storage"
)

// IndexRepository implements storage.IndexRepository for BadgerDB.
type IndexRepository struct {
	backend *Backend
}

var _ storage.IndexRepository = (*IndexRepository)(nil)

// NewIndexRepository creates a new IndexRepository.
func NewIndexRepository(backend *Backend) (storage.IndexRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &IndexRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *IndexRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *IndexRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// EnsureCollection records the collection metadata on first use and verifies
// it on subsequent calls.
func (r *IndexRepository) EnsureCollection(ctx context.Context, name, embeddingModel string, dimension int) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		existing, err := readCollectionInfo(tx)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		if existing != nil {
			if existing.EmbeddingModel != embeddingModel {
				return fmt.Errorf("%w: collection indexed with %q, got %q",
					storage.ErrModelMismatch, existing.EmbeddingModel, embeddingModel)
			}
			if existing.Dimension != dimension {
				return fmt.Errorf("%w: collection has %d dimensions, got %d",
					storage.ErrDimensionMismatch, existing.Dimension, dimension)
			}
			if existing.Name != name {
				return fmt.Errorf("collection is named %q, got %q", existing.Name, name)
			}
			return nil
		}

		info := &core.CollectionInfo{
			Name:           name,
			Metric:         core.MetricCosine,
			EmbeddingModel: embeddingModel,
			Dimension:      dimension,
			CreatedAt:      time.Now().UTC(),
		}
		if err := tx.Set([]byte(collectionMetaKey), storage.MarshalCollectionInfo(info)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Collection returns the persisted collection metadata.
func (r *IndexRepository) Collection(ctx context.Context) (*core.CollectionInfo, error) {
	var info *core.CollectionInfo
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		info, err = readCollectionInfo(tx)
		return err
	}, false)
	return info, err
}

// SetCollectionModel rewrites the persisted embedding model and dimension.
func (r *IndexRepository) SetCollectionModel(ctx context.Context, embeddingModel string, dimension int) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		info, err := readCollectionInfo(tx)
		if err != nil {
			return err
		}
		info.EmbeddingModel = embeddingModel
		info.Dimension = dimension
		if err := tx.Set([]byte(collectionMetaKey), storage.MarshalCollectionInfo(info)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// HasDocument reports whether any entry carries the given document ID.
func (r *IndexRepository) HasDocument(ctx context.Context, documentID string) (bool, error) {
	var found bool
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeDocumentPrefix(documentID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		iter.Rewind()
		found = iter.Valid()
		return nil
	}, false)
	return found, err
}

// UpsertEntries inserts or overwrites entries by their IDs in a single
// transaction. Entries are validated against the collection dimension before
// anything is written, so a failed batch commits nothing.
func (r *IndexRepository) UpsertEntries(ctx context.Context, entries ...*core.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		info, err := readCollectionInfo(tx)
		if err != nil {
			return fmt.Errorf("collection metadata missing, call EnsureCollection first: %w", err)
		}

		// Validate the whole batch before the first write.
		for _, entry := range entries {
			if err := core.ValidateIndexEntry(entry); err != nil {
				return err
			}
			if len(entry.Vector) != info.Dimension {
				return fmt.Errorf("%w: entry %d has %d dimensions, collection has %d",
					storage.ErrDimensionMismatch, entry.Id, len(entry.Vector), info.Dimension)
			}
		}

		for _, entry := range entries {
			if entry.InsertedAt.IsZero() {
				entry.InsertedAt = time.Now().UTC()
			}

			if err := tx.Set(makeEntryKey(entry.Id), storage.MarshalIndexEntry(entry)); err != nil {
				return err
			}
			if err := tx.Set(makeDocumentKey(entry.DocumentID, entry.Id), storage.MarshalID(entry.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// QueryNearest returns up to k entries nearest to the given vector by cosine
// distance, most similar first.
func (r *IndexRepository) QueryNearest(ctx context.Context, vector []float32, k int) ([]*core.QueryMatch, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be greater than 0", storage.ErrInvalidQuery)
	}

	info, err := r.Collection(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		// Nothing indexed yet: an empty store answers with no matches.
		return []*core.QueryMatch{}, nil
	}
	if err != nil {
		return nil, err
	}

	if len(vector) != info.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d",
			storage.ErrDimensionMismatch, len(vector), info.Dimension)
	}

	return r.backend.FindNearest(ctx, vector, k)
}

// GetEntry retrieves a single entry by ID.
func (r *IndexRepository) GetEntry(ctx context.Context, id core.ID) (*core.IndexEntry, error) {
	var entry *core.IndexEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		entry, err = readEntry(tx, makeEntryKey(id))
		if err != nil {
			return err
		}
		if entry == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return entry, err
}

// GetDocumentEntries retrieves all entries of a document in chunk order.
func (r *IndexRepository) GetDocumentEntries(ctx context.Context, documentID string) ([]*core.IndexEntry, error) {
	var entries []*core.IndexEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := documentEntryIDs(tx, documentID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			entry, err := readEntry(tx, makeEntryKey(id))
			if err != nil {
				return err
			}
			if entry != nil {
				entries = append(entries, entry)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(entries, func(a, b *core.IndexEntry) int {
		return a.ChunkIndex - b.ChunkIndex
	})
	return entries, nil
}

// DeleteEntries removes entries by their IDs.
func (r *IndexRepository) DeleteEntries(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeEntryKey(id)
			entry, err := readEntry(tx, key)
			if err != nil {
				return err
			}
			if entry == nil {
				return storage.ErrNotFound
			}

			if err := tx.Delete(makeDocumentKey(entry.DocumentID, entry.Id)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteDocument removes every entry of a document.
func (r *IndexRepository) DeleteDocument(ctx context.Context, documentID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := documentEntryIDs(tx, documentID)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return storage.ErrNotFound
		}

		for _, id := range ids {
			if err := tx.Delete(makeEntryKey(id)); err != nil {
				return err
			}
			if err := tx.Delete(makeDocumentKey(documentID, id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ListDocuments returns the IDs of all indexed documents in sorted order.
func (r *IndexRepository) ListDocuments(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var docs []string

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentKeyPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			docID := documentIDFromKey(iter.Item().Key())
			if !seen[docID] {
				seen[docID] = true
				docs = append(docs, docID)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.Sort(docs)
	return docs, nil
}

// CountEntries returns the total number of entries in the collection.
func (r *IndexRepository) CountEntries(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryKeyPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// ForEachEntry iterates over all entries in batches of batchSize.
func (r *IndexRepository) ForEachEntry(ctx context.Context, batchSize int, fn func(entries []*core.IndexEntry) error) error {
	if batchSize <= 0 {
		return fmt.Errorf("%w: batch size must be greater than 0", storage.ErrInvalidQuery)
	}

	// Load all entries first so fn may write without deadlocking the
	// read transaction.
	var entries []*core.IndexEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryKeyPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				entry, err := storage.UnmarshalIndexEntry(val)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return err
	}

	for i := 0; i < len(entries); i += batchSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := i + batchSize
		if end > len(entries) {
			end = len(entries)
		}
		if err := fn(entries[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// readEntry reads and deserializes an entry, returning nil if the key is absent.
func readEntry(tx *badger.Txn, key []byte) (*core.IndexEntry, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry *core.IndexEntry
	err = item.Value(func(val []byte) error {
		var err error
		entry, err = storage.UnmarshalIndexEntry(val)
		return err
	})
	return entry, err
}

// documentEntryIDs collects the entry IDs recorded under a document's index keys.
func documentEntryIDs(tx *badger.Txn, documentID string) ([]core.ID, error) {
	var ids []core.ID

	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeDocumentPrefix(documentID)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		err := iter.Item().Value(func(val []byte) error {
			id, err := storage.UnmarshalID(val)
			if err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// readCollectionInfo reads the collection metadata within a transaction.
func readCollectionInfo(tx *badger.Txn) (*core.CollectionInfo, error) {
	item, err := tx.Get([]byte(collectionMetaKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var info *core.CollectionInfo
	err = item.Value(func(val []byte) error {
		var err error
		info, err = storage.UnmarshalCollectionInfo(val)
		return err
	})
	return info, err
}
