package domain

import (
	"context"
	"sync/atomic"
	"time"
)

// Aggregator groups queued jobs into a single batch for one runtime
// invocation, subject to the model's size and delay bounds.
type Aggregator interface {
	// NextBatch blocks according to the aggregator's policy and returns
	// the next batch. A nil error with an empty batch means "no work
	// arrived in time" — permanent aggregators retry, transient ones
	// treat it as their termination signal. A non-nil error means ctx
	// was cancelled and the worker should stop without retrying.
	NextBatch(ctx context.Context) ([]*Job, error)
}

// drainable is implemented by aggregators that support an explicit
// termination signal independent of the delay-based poll (see
// transientAggregator.Drain).
type drainable interface {
	Drain()
}

// permanentAggregator backs the always-on baseline workers. It never
// signals termination: an empty poll (the queue stayed empty for maxDelay)
// just means try again.
type permanentAggregator struct {
	queue    *JobQueue
	maxBatch int
	maxDelay time.Duration
}

// NewPermanentAggregator builds the aggregator used by permanent workers.
func NewPermanentAggregator(queue *JobQueue, maxBatch int, maxDelay time.Duration) Aggregator {
	return &permanentAggregator{queue: queue, maxBatch: maxBatch, maxDelay: maxDelay}
}

func (a *permanentAggregator) NextBatch(ctx context.Context) ([]*Job, error) {
	for {
		batch, err := a.queue.PollBatch(ctx, a.maxBatch, a.maxDelay)
		if err != nil {
			return nil, err
		}
		if len(batch) > 0 {
			return batch, nil
		}
	}
}

// transientAggregator backs burst workers. Either an empty poll (the first
// job never arrived within maxDelay) or an explicit Drain terminates it —
// the two are combined rather than relying on the empty-poll race alone.
type transientAggregator struct {
	queue    *JobQueue
	maxBatch int
	maxDelay time.Duration
	draining atomic.Bool
}

// NewTransientAggregator builds the aggregator used by burst workers.
func NewTransientAggregator(queue *JobQueue, maxBatch int, maxDelay time.Duration) Aggregator {
	return &transientAggregator{queue: queue, maxBatch: maxBatch, maxDelay: maxDelay}
}

func (a *transientAggregator) NextBatch(ctx context.Context) ([]*Job, error) {
	if a.draining.Load() {
		return nil, nil
	}
	batch, err := a.queue.PollBatch(ctx, a.maxBatch, a.maxDelay)
	if err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		a.draining.Store(true)
	}
	return batch, nil
}

// Drain marks the aggregator for termination on its next NextBatch call,
// regardless of whether a job is waiting.
func (a *transientAggregator) Drain() {
	a.draining.Store(true)
}
