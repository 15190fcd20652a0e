package domain

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// WorkerPool is the per-model bundle of one JobQueue plus its Workers. It
// owns both exclusively; a pool is never shared across models.
//
// WorkerPool embeds sync.Mutex as the single per-model lock used to
// serialize rescaling (WorkloadManager.scaleUp/ModelChanged). Storing the
// lock on the pool, rather than keying a shared lock table by model-name
// string identity, avoids the latent bug where two equal-but-distinct
// string values would fail to share a lock.
//
// The worker list itself is a snapshot-on-read: reads never block behind
// the scale-up lock, mutations always install a fresh slice under it.
type WorkerPool struct {
	sync.Mutex

	queue *JobQueue

	model   atomic.Pointer[ModelInfo]
	runtime atomic.Pointer[ModelRuntime]

	workers      atomic.Pointer[[]*Worker]
	nextWorkerID atomic.Int64

	logger *zap.Logger
}

// NewWorkerPool creates a pool for model, sized from model.QueueSize.
func NewWorkerPool(model ModelInfo, logger *zap.Logger) *WorkerPool {
	p := &WorkerPool{
		queue:  NewJobQueue(model.QueueSize),
		logger: logger,
	}
	p.model.Store(&model)
	empty := make([]*Worker, 0)
	p.workers.Store(&empty)
	return p
}

// Queue returns the pool's job queue.
func (p *WorkerPool) Queue() *JobQueue {
	return p.queue
}

// Model returns the most recently reconciled ModelInfo for this pool.
func (p *WorkerPool) Model() ModelInfo {
	return *p.model.Load()
}

// SetModel updates the pool's ModelInfo snapshot. Callers hold the pool's
// lock while reconciling, but the read side never needs to.
func (p *WorkerPool) SetModel(model ModelInfo) {
	p.model.Store(&model)
}

// Runtime returns the ModelRuntime currently bound to this pool, or nil if
// none has been registered yet.
func (p *WorkerPool) Runtime() ModelRuntime {
	if r := p.runtime.Load(); r != nil {
		return *r
	}
	return nil
}

// SetRuntime rebinds the pool's ModelRuntime, used when the external loader
// hot-swaps a model's runtime via ModelChanged.
func (p *WorkerPool) SetRuntime(runtime ModelRuntime) {
	p.runtime.Store(&runtime)
}

// NextWorkerID hands out monotonically increasing worker ids, starting at
// 1, that are unique within this pool only; workers of different pools can
// share an id.
func (p *WorkerPool) NextWorkerID() int64 {
	return p.nextWorkerID.Add(1)
}

// Workers returns an immutable snapshot of the pool's worker list. Callers
// may hold onto it; it is never mutated in place.
func (p *WorkerPool) Workers() []*Worker {
	return *p.workers.Load()
}

// AppendWorker adds w to the visible worker list. Callers must hold the
// pool's lock.
func (p *WorkerPool) AppendWorker(w *Worker) {
	cur := *p.workers.Load()
	next := make([]*Worker, len(cur)+1)
	copy(next, cur)
	next[len(cur)] = w
	p.workers.Store(&next)
}

// RemoveWorkers drops the given workers from the visible list. It does not
// shut them down or cancel in-flight work; callers that want that must call
// Worker.Shutdown themselves first. Callers must hold the pool's lock.
func (p *WorkerPool) RemoveWorkers(remove []*Worker) {
	if len(remove) == 0 {
		return
	}
	drop := make(map[*Worker]struct{}, len(remove))
	for _, w := range remove {
		drop[w] = struct{}{}
	}
	cur := *p.workers.Load()
	next := make([]*Worker, 0, len(cur))
	for _, w := range cur {
		if _, found := drop[w]; !found {
			next = append(next, w)
		}
	}
	p.workers.Store(&next)
}

// Cleanup atomically removes all workers in {STOPPED, ERROR, SCALED_DOWN}
// from the visible list. It never cancels a running worker; it only evicts
// ones that have already reached a terminal state on their own. Cleanup
// acquires the pool's lock itself, so callers that already hold it (e.g.
// ModelChanged) should use CleanupLocked instead.
func (p *WorkerPool) Cleanup() {
	p.Lock()
	defer p.Unlock()
	p.CleanupLocked()
}

// CleanupLocked is Cleanup without acquiring the lock; the caller must
// already hold it.
func (p *WorkerPool) CleanupLocked() {
	cur := *p.workers.Load()
	next := make([]*Worker, 0, len(cur))
	for _, w := range cur {
		if !w.State().Terminal() {
			next = append(next, w)
		}
	}
	p.workers.Store(&next)
}

// PermanentCount returns the number of non-terminal permanent workers.
func (p *WorkerPool) PermanentCount() int {
	count := 0
	for _, w := range p.Workers() {
		if w.Permanent && !w.State().Terminal() {
			count++
		}
	}
	return count
}

// RunningCount returns the number of workers not in
// {STOPPED, ERROR, SCALED_DOWN}.
func (p *WorkerPool) RunningCount() int {
	count := 0
	for _, w := range p.Workers() {
		if !w.State().Terminal() {
			count++
		}
	}
	return count
}
