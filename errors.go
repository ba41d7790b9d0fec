package vecrecall

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSearcher is returned by Evaluate when no Searcher was configured.
	ErrNoSearcher = errors.New("vecrecall: no searcher configured")

	// ErrNilTracker is returned when a Runner is created without a tracker.
	ErrNilTracker = errors.New("vecrecall: tracker is nil")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("vecrecall: batch size must be positive")

	// ErrClosed is returned when a closed Runner is used.
	ErrClosed = errors.New("vecrecall: runner is closed")
)

// IngestError reports which batch of the stream failed and at which stage.
// Offset is the stream position of the first vector in the batch.
//
// The original underlying error can be accessed via errors.Unwrap.
type IngestError struct {
	Offset uint64
	Size   int
	Stage  string
	cause  error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("vecrecall: %s failed for batch at offset %d (%d vectors): %v", e.Stage, e.Offset, e.Size, e.cause)
}

func (e *IngestError) Unwrap() error { return e.cause }

// Stages reported by IngestError.
const (
	StageIngest     = "ingest"
	StageTrack      = "track"
	StageFlush      = "flush"
	StageEvaluate   = "evaluate"
	StageCheckpoint = "checkpoint"
)
