package chunk

import "errors"

var (
	// ErrInvalidChunkSize is returned when the chunk size is not positive.
	ErrInvalidChunkSize = errors.New("chunk size must be greater than 0")

	// ErrInvalidOverlap is returned when the overlap is negative.
	ErrInvalidOverlap = errors.New("chunk overlap cannot be negative")

	// ErrOverlapTooLarge is returned when the overlap is not smaller than
	// the chunk size, which would prevent the splitter from making progress.
	ErrOverlapTooLarge = errors.New("chunk overlap must be smaller than chunk size")
)
