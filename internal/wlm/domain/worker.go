package domain

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// State is a Worker's position in its lifecycle state machine.
type State int32

const (
	StateStarting State = iota
	StateWaiting
	StateRunning
	StateScaledDown
	StateStopped
	StateError
)

// Terminal reports whether s is one of the states a Worker never leaves.
func (s State) Terminal() bool {
	switch s {
	case StateScaledDown, StateStopped, StateError:
		return true
	default:
		return false
	}
}

func (s State) String() string {
	switch s {
	case StateStarting:
		return "STARTING"
	case StateWaiting:
		return "WAITING"
	case StateRunning:
		return "RUNNING"
	case StateScaledDown:
		return "SCALED_DOWN"
	case StateStopped:
		return "STOPPED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Worker is a long-running executor bound to one model, one device and one
// aggregator. It drives the state machine described in the package's
// design: STARTING -> WAITING -> (RUNNING -> WAITING)* -> one terminal state.
type Worker struct {
	ID        int64
	DeviceID  int
	Permanent bool
	ModelName string

	aggregator Aggregator
	runtime    ModelRuntime

	ctx    context.Context
	cancel context.CancelFunc

	state atomic.Int32
	done  chan struct{}

	logger   *zap.Logger
	recorder Recorder
}

// NewWorker constructs a Worker. It does not start the run loop; callers
// launch Run on a goroutine of their choosing (typically via a bounded
// executor). recorder may be nil, in which case observability events are
// discarded.
func NewWorker(id int64, deviceID int, permanent bool, modelName string, aggregator Aggregator, runtime ModelRuntime, parent context.Context, logger *zap.Logger, recorder Recorder) *Worker {
	ctx, cancel := context.WithCancel(parent)
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Worker{
		ID:         id,
		DeviceID:   deviceID,
		Permanent:  permanent,
		ModelName:  modelName,
		aggregator: aggregator,
		runtime:    runtime,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		logger:     logger,
		recorder:   recorder,
	}
}

// State returns the worker's current state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Done is closed once the worker's run loop has returned.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// setState moves the worker to s unless it is already in a terminal state,
// in which case the call is a no-op. This is what makes terminal states
// sticky under concurrent callers (e.g. a fatal batch failure racing a
// Shutdown call).
func (w *Worker) setState(s State) {
	for {
		cur := State(w.state.Load())
		if cur.Terminal() {
			return
		}
		if w.state.CompareAndSwap(int32(cur), int32(s)) {
			return
		}
	}
}

// Run drives the worker loop until a terminal state is reached, then
// releases the device slot and returns. It is safe to call exactly once.
func (w *Worker) Run() {
	defer close(w.done)
	defer w.runtime.OnWorkerStop()

	w.runtime.OnWorkerStart(w.DeviceID)
	w.setState(StateWaiting)

	for {
		if w.State().Terminal() {
			return
		}

		batch, err := w.aggregator.NextBatch(w.ctx)
		if err != nil {
			w.setState(StateStopped)
			return
		}

		if len(batch) == 0 {
			if !w.Permanent {
				w.setState(StateScaledDown)
				return
			}
			continue
		}

		w.setState(StateRunning)
		if fatal := w.executeBatch(batch); fatal {
			w.setState(StateError)
			return
		}
		w.setState(StateWaiting)
	}
}

// executeBatch invokes the runtime once for batch and routes each result
// back through the originating Job's completion, preserving position. It
// reports whether the failure (if any) was fatal to the worker.
func (w *Worker) executeBatch(batch []*Job) bool {
	start := time.Now()
	results, err := w.runtime.Predict(context.WithoutCancel(w.ctx), batch)
	elapsed := time.Since(start)

	if err != nil {
		fatal := IsFatal(err)
		for _, job := range batch {
			job.Fail(err)
		}
		outcome := "batch_failed"
		if fatal {
			outcome = "worker_fatal"
		}
		w.recorder.BatchDispatched(w.ModelName, len(batch), elapsed, outcome)
		if w.logger != nil {
			w.logger.Warn("batch invocation failed",
				zap.Int64("worker_id", w.ID),
				zap.String("model", w.ModelName),
				zap.Bool("fatal", fatal),
				zap.Error(err))
		}
		return fatal
	}

	for i, job := range batch {
		if i >= len(results) {
			job.Fail(ErrBatchFailed) // runtime returned fewer results than jobs
			continue
		}
		if results[i].Err != nil {
			job.Fail(results[i].Err)
			continue
		}
		job.Succeed(results[i].Value)
	}
	w.recorder.BatchDispatched(w.ModelName, len(batch), elapsed, "success")
	return false
}

// Shutdown is idempotent. It sets the given terminal state (only the first
// caller wins), unblocks the aggregator via the explicit drain signal where
// supported, and cancels the worker's context so any blocking queue wait
// returns promptly. An in-flight batch is allowed to finish; Shutdown does
// not interrupt Predict.
func (w *Worker) Shutdown(reason State) {
	w.setState(reason)
	if d, ok := w.aggregator.(drainable); ok {
		d.Drain()
	}
	w.cancel()
}
