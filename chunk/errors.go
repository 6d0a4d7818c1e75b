package chunk

import "errors"

var (
	// ErrInvalidChunkSize indicates a non-positive maximum chunk size.
	ErrInvalidChunkSize = errors.New("invalid max chunk size")

	// ErrInvalidOverlap indicates an overlap that is negative or not
	// strictly smaller than the maximum chunk size.
	ErrInvalidOverlap = errors.New("invalid overlap")
)
