// Package reindex re-embeds every stored chunk with a new or updated
// embedding model.
//
// The collection metadata is switched to the new model before the first
// batch is written, so every rewritten entry validates against the new
// dimension. Batches are retried with exponential backoff, and progress is
// reported while the run advances.
package reindex
