package groundtruth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrNoQueries is returned when a tracker is created without query vectors.
	ErrNoQueries = errors.New("at least one query vector is required")

	// ErrIncompatible is returned when trackers with different configuration are merged.
	ErrIncompatible = errors.New("incompatible trackers")

	// ErrCorruptState is returned when a State violates tracker invariants.
	ErrCorruptState = errors.New("corrupt tracker state")
)

// ErrIndexOutOfRange indicates a query index outside [0, Len).
type ErrIndexOutOfRange struct {
	Index int
	Len   int
}

func (e *ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("query index %d out of range [0, %d)", e.Index, e.Len)
}

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidDimension indicates an unusable query dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// BatchError reports the item that stopped UpdateBatch.
type BatchError struct {
	Position int
	ID       string
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch item %d (%q): %v", e.Position, e.ID, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
