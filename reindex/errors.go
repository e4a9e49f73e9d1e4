package reindex

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrVectorCountMismatch is returned when the embedder returns a
	// different number of vectors than texts submitted.
	ErrVectorCountMismatch = errors.New("embedder returned wrong number of vectors")
)
