package vector

import "errors"

var (
	// ErrNotFound is returned when a point is not found in the vector index.
	ErrNotFound = errors.New("point not found")

	// ErrConnection is returned when the vector index connection fails.
	ErrConnection = errors.New("vector index connection failed")
)
