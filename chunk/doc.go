// Package chunk splits normalized transcripts into overlapping, bounded-size
// segments for embedding and indexing.
//
// The Splitter produces character windows rather than sentence groups: the
// hard constraint is the per-chunk length bound the embedding model imposes,
// and the fixed overlap preserves semantic continuity across window borders.
package chunk
