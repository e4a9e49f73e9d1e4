// Package ingestion turns raw transcripts into indexed vector entries.
//
// A Pipeline takes documents through a fixed sequence of states: pending,
// then either skipped (already indexed) or chunked, embedded, and finally
// stored. Failures are isolated per document, so one bad transcript never
// aborts a corpus run.
//
// The package also provides a corpus loader for directories of .txt and
// .json transcript files.
package ingestion
