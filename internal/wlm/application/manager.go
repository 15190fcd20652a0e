package application

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/DimaJoyti/infer-wlm/internal/wlm/domain"
)

// WorkloadManager is the top-level coordinator: it routes submissions,
// scales pools up and down, assigns devices, and reconciles pools against
// model-configuration changes. All state lives on the instance; neither this
// package nor the domain package keeps package-level mutable state.
type WorkloadManager struct {
	pools    sync.Map // model name -> *domain.WorkerPool
	device   *domain.DeviceAssigner
	executor *executor
	logger   *zap.Logger
	recorder domain.Recorder

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// Config configures a WorkloadManager at construction. All other tuning is
// per-model via ModelInfo.
type Config struct {
	// GPUCount is the number of accelerators available for round-robin
	// assignment. Zero disables accelerator placement entirely.
	GPUCount int
	// MaxTotalWorkers bounds the shared executor's concurrency. It should
	// be at least the sum of MaxWorkers across every model that will be
	// registered; spawning beyond it blocks the caller until a worker
	// exits elsewhere.
	MaxTotalWorkers int
	// Recorder receives observability events; a NopRecorder is used when
	// left nil.
	Recorder domain.Recorder
}

// NewWorkloadManager constructs a manager with no pools registered yet.
func NewWorkloadManager(cfg Config, logger *zap.Logger) *WorkloadManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = domain.NopRecorder{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkloadManager{
		device:   domain.NewDeviceAssigner(cfg.GPUCount),
		executor: newExecutor(cfg.MaxTotalWorkers),
		logger:   logger,
		recorder: recorder,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Submit offers job to model's queue, creating the pool on first use and
// scaling up by one transient worker if the queue is already full. It
// never panics or propagates an error; failure to admit is reported solely
// via the boolean return plus a log entry.
func (m *WorkloadManager) Submit(ctx context.Context, model domain.ModelInfo, job *domain.Job) bool {
	pool := m.getOrCreatePool(model)

	if m.RunningWorkerCount(model.Name) == 0 {
		m.logger.Debug("submit rejected: no running workers",
			zap.String("model", model.Name), zap.Error(domain.ErrNoWorkers))
		m.recorder.JobRejected(model.Name, "no_workers")
		return false
	}

	if pool.Queue().Offer(job) {
		m.recorder.JobAdmitted(model.Name)
		return true
	}

	pool.Lock()
	if err := m.scaleUp(pool, model); err != nil {
		m.logger.Info("scale up did not add capacity, retrying with timed offer",
			zap.String("model", model.Name), zap.Error(err))
	}
	pool.Unlock()

	ok := pool.Queue().OfferWait(ctx, job, model.MaxBatchDelay)
	if !ok {
		if ctx.Err() != nil {
			m.logger.Info("submission interrupted while waiting for queue room",
				zap.String("model", model.Name), zap.Error(domain.ErrAdmissionInterrupted))
			m.recorder.JobRejected(model.Name, "interrupted")
		} else {
			m.logger.Info("submission dropped: queue still full after scale attempt",
				zap.String("model", model.Name), zap.Error(domain.ErrQueueFull))
			m.recorder.JobRejected(model.Name, "queue_full")
		}
		return false
	}
	m.recorder.JobAdmitted(model.Name)
	return true
}

// scaleUp spawns one additional transient worker if model.MaxWorkers
// permits it. Callers must hold pool's lock. It never bursts more than one
// worker per call.
func (m *WorkloadManager) scaleUp(pool *domain.WorkerPool, model domain.ModelInfo) error {
	if pool.RunningCount() >= model.MaxWorkers {
		m.logger.Warn("scale capacity exceeded",
			zap.String("model", model.Name),
			zap.Int("running", pool.RunningCount()),
			zap.Int("max_workers", model.MaxWorkers))
		return domain.ErrScaleCapacityExceeded
	}
	w, err := m.spawnWorker(pool, model, false)
	if err != nil {
		return err
	}
	pool.AppendWorker(w)
	m.recorder.PoolSnapshot(model.Name, pool.RunningCount(), pool.PermanentCount(), pool.Queue().Len())
	return nil
}

// spawnWorker constructs a Worker wired to pool's queue and runtime,
// assigns it a device when the model targets accelerators, and submits its
// run loop to the shared executor. It refuses to spawn against a pool with
// no runtime bound yet, since Worker.Run calls straight into it with no nil
// guard. Callers must hold pool's lock.
func (m *WorkloadManager) spawnWorker(pool *domain.WorkerPool, model domain.ModelInfo, permanent bool) (*domain.Worker, error) {
	if pool.Runtime() == nil {
		m.logger.Error("refusing to spawn worker: no runtime bound",
			zap.String("model", model.Name))
		return nil, domain.ErrNoRuntimeBound
	}

	deviceID := domain.CPUDevice
	if model.Accelerated {
		deviceID = m.device.Next()
	}

	var aggregator domain.Aggregator
	if permanent {
		aggregator = domain.NewPermanentAggregator(pool.Queue(), model.BatchSize, model.MaxBatchDelay)
	} else {
		aggregator = domain.NewTransientAggregator(pool.Queue(), model.BatchSize, model.MaxBatchDelay)
	}

	worker := domain.NewWorker(pool.NextWorkerID(), deviceID, permanent, model.Name, aggregator, pool.Runtime(), m.ctx, m.logger, m.recorder)

	m.logger.Debug("spawning worker",
		zap.String("model", model.Name),
		zap.Int64("worker_id", worker.ID),
		zap.Int("device_id", deviceID),
		zap.Bool("permanent", permanent))

	m.executor.Go(worker.Run)
	return worker, nil
}

// ModelChanged reconciles a pool against the latest ModelInfo: it cleans up
// terminated workers, tops up or trims the permanent baseline to
// minWorkers, and optionally drops the pool entirely. runtime may be nil to
// leave the pool's current runtime binding untouched. remove, when true and
// model.MinWorkers == 0, drops the pool from the registry after cleanup
// instead of merely reconciling it to zero permanent workers.
func (m *WorkloadManager) ModelChanged(model domain.ModelInfo, runtime domain.ModelRuntime, remove bool) {
	pool := m.getOrCreatePool(model)

	pool.Lock()
	defer pool.Unlock()

	pool.CleanupLocked()
	pool.SetModel(model)
	if runtime != nil {
		pool.SetRuntime(runtime)
	}

	if model.MinWorkers == 0 && remove {
		m.pools.Delete(model.Name)
		m.logger.Debug("pool removed", zap.String("model", model.Name))
		return
	}

	var permanent []*domain.Worker
	for _, w := range pool.Workers() {
		if w.Permanent {
			permanent = append(permanent, w)
		}
	}

	switch current := len(permanent); {
	case current < model.MinWorkers:
		for i := 0; i < model.MinWorkers-current; i++ {
			w, err := m.spawnWorker(pool, model, true)
			if err != nil {
				m.logger.Error("cannot reconcile to minWorkers: no runtime bound",
					zap.String("model", model.Name), zap.Error(err))
				break
			}
			pool.AppendWorker(w)
		}
	case current > model.MinWorkers:
		excess := permanent[model.MinWorkers:]
		for _, w := range excess {
			w.Shutdown(domain.StateScaledDown)
		}
		pool.RemoveWorkers(excess)
	}

	m.recorder.PoolSnapshot(model.Name, pool.RunningCount(), pool.PermanentCount(), pool.Queue().Len())
	m.logger.Debug("model reconciled",
		zap.String("model", model.Name),
		zap.Int("min_workers", model.MinWorkers),
		zap.Int("permanent_workers", pool.PermanentCount()),
		zap.Int("queue_len", pool.Queue().Len()))
}

// Workers returns a best-effort read-only snapshot of modelName's worker
// list, or nil if the model has no pool.
func (m *WorkloadManager) Workers(modelName string) []*domain.Worker {
	pool, ok := m.lookup(modelName)
	if !ok {
		return nil
	}
	return pool.Workers()
}

// RunningWorkerCount counts workers not in {STOPPED, ERROR, SCALED_DOWN},
// triggering a cleanup pass as a side effect.
func (m *WorkloadManager) RunningWorkerCount(modelName string) int {
	pool, ok := m.lookup(modelName)
	if !ok {
		return 0
	}
	pool.Cleanup()
	return pool.RunningCount()
}

// Shutdown is idempotent. It signals every worker across every pool to
// stop, then awaits the shared executor's drain.
func (m *WorkloadManager) Shutdown() {
	m.shutdownOnce.Do(func() {
		m.cancel()
		m.pools.Range(func(_, v any) bool {
			pool := v.(*domain.WorkerPool)
			for _, w := range pool.Workers() {
				w.Shutdown(domain.StateStopped)
			}
			return true
		})
		m.executor.Wait()
	})
}

func (m *WorkloadManager) lookup(modelName string) (*domain.WorkerPool, bool) {
	v, ok := m.pools.Load(modelName)
	if !ok {
		return nil, false
	}
	return v.(*domain.WorkerPool), true
}

// getOrCreatePool atomically resolves modelName's pool, creating it on
// first use. Construction races are harmless: at most one candidate is
// ever published via LoadOrStore, and an unpublished candidate owns no
// goroutines yet.
func (m *WorkloadManager) getOrCreatePool(model domain.ModelInfo) *domain.WorkerPool {
	if pool, ok := m.lookup(model.Name); ok {
		return pool
	}
	candidate := domain.NewWorkerPool(model, m.logger)
	actual, _ := m.pools.LoadOrStore(model.Name, candidate)
	return actual.(*domain.WorkerPool)
}
