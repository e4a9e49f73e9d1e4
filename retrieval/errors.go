package retrieval

import "errors"

// ErrInvalidK indicates a non-positive match count was requested.
var ErrInvalidK = errors.New("k must be greater than 0")
