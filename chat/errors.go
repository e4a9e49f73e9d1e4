package chat

import "errors"

// ErrEmptyInput indicates a blank user turn.
var ErrEmptyInput = errors.New("user input is empty")
