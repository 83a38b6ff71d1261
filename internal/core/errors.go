// ABOUTME: Sentinel errors of the indexing and retrieval pipeline
// ABOUTME: Callers use errors.Is to tell fatal pipeline failures apart
package core

import "errors"

var (
	// ErrInvalidWindow means the chunk window/overlap pair is unusable
	ErrInvalidWindow = errors.New("invalid chunk window")
	// ErrDimensionProbe means the vector size could not be determined
	ErrDimensionProbe = errors.New("failed to get embedding dimension")
	// ErrDimensionMismatch means an embedding's length differs from the collection's
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrEmptyVector means the query embedding came back empty
	ErrEmptyVector = errors.New("empty query embedding")
)
