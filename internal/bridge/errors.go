package bridge

import "errors"

// Input errors are rejected synchronously before any store call.
var (
	// ErrEmptyQuery indicates an empty or whitespace-only query.
	ErrEmptyQuery = errors.New("query must not be empty")

	// ErrInvalidTopK indicates a non-positive requested result count.
	ErrInvalidTopK = errors.New("top-k must be positive")
)
