package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the dispatch-layer error taxonomy. None of these ever
// escape WorkloadManager.Submit as a panic or propagate across workers; they
// surface as a false return plus a log entry, or as a Job completion.
var (
	// ErrQueueFull is logged when Submit could not place the job on the
	// queue, even after a scale-up attempt and a timed offer.
	ErrQueueFull = errors.New("wlm: queue full")

	// ErrScaleCapacityExceeded is logged when a scale-up attempt would
	// exceed the model's maxWorkers bound.
	ErrScaleCapacityExceeded = errors.New("wlm: scale capacity exceeded")

	// ErrAdmissionInterrupted is logged when a submitter's bounded wait
	// was interrupted by context cancellation rather than timing out.
	ErrAdmissionInterrupted = errors.New("wlm: admission interrupted")

	// ErrNoWorkers is logged when Submit rejects a job because the pool
	// currently has no running workers to eventually drain the queue.
	ErrNoWorkers = errors.New("wlm: no running workers for model")

	// ErrBatchFailed is used to fail a job whose position in the runtime's
	// result slice was never filled in.
	ErrBatchFailed = errors.New("wlm: batch failed")

	// ErrNoRuntimeBound is returned when a pool is asked to spawn a worker
	// before any ModelRuntime has ever been bound to it.
	ErrNoRuntimeBound = errors.New("wlm: no runtime bound to pool")
)

// RuntimeError wraps a ModelRuntime failure with the fatal/non-fatal
// classification the runtime assigned it. A fatal error kills the worker
// after failing the offending batch; a non-fatal error fails only that
// batch and the worker keeps serving.
type RuntimeError struct {
	Err   error
	Fatal bool
}

func (e *RuntimeError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("wlm: worker fatal: %v", e.Err)
	}
	return fmt.Sprintf("wlm: batch failed: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// IsFatal reports whether err (or something it wraps) was classified fatal
// by the runtime that produced it. Errors with no opinion are treated as
// non-fatal, matching a runtime that simply didn't classify the failure.
func IsFatal(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Fatal
	}
	return false
}

// NewFatalError wraps err as a fatal runtime failure.
func NewFatalError(err error) error {
	return &RuntimeError{Err: err, Fatal: true}
}

// NewBatchError wraps err as a non-fatal, batch-scoped runtime failure.
func NewBatchError(err error) error {
	return &RuntimeError{Err: err, Fatal: false}
}
