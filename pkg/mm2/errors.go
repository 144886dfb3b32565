package mm2

import (
	"errors"
	"fmt"
)

var (
	// ErrPathNotFound is returned when the reference location does not exist.
	ErrPathNotFound = errors.New("reference path does not exist")

	// ErrIndexOpenFailure is returned when the engine cannot open the
	// reference or reads no index part from it.
	ErrIndexOpenFailure = errors.New("failed to open index")

	// ErrUnknownPreset is returned when the engine rejects a preset name.
	ErrUnknownPreset = errors.New("unknown preset")

	// ErrOutOfMemory is returned when the engine cannot allocate a
	// parameter block or a working buffer.
	ErrOutOfMemory = errors.New("engine allocation failed")

	// ErrInvalidSequenceEncoding is returned for a query whose name or
	// sequence cannot be handed to the engine as a C string.
	ErrInvalidSequenceEncoding = errors.New("invalid sequence encoding")

	// ErrEngineContractViolation is returned when the engine reports hits
	// without returning them.
	ErrEngineContractViolation = errors.New("engine contract violation")

	// ErrBatchWorkerFailure matches every *BatchError.
	ErrBatchWorkerFailure = errors.New("batch worker failed")

	// ErrClosed is returned by operations on a closed Aligner.
	ErrClosed = errors.New("aligner is closed")
)

// BatchError reports the failure of one batch worker. It aborts the whole
// batch.
//
// The underlying error can be accessed via errors.Unwrap.
type BatchError struct {
	Worker int
	// Start and End delimit the worker's chunk of the input, half-open.
	Start, End int
	cause      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch worker %d (queries %d-%d) failed: %v", e.Worker, e.Start, e.End, e.cause)
}

func (e *BatchError) Unwrap() error { return e.cause }

// Is reports ErrBatchWorkerFailure as matching.
func (e *BatchError) Is(target error) bool { return target == ErrBatchWorkerFailure }
