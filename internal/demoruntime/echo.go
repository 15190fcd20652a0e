// Package demoruntime provides a stand-in ModelRuntime used by wlm-server
// when no real inference engine is configured. It simulates latency and
// occasionally exercises the fatal/non-fatal error paths so the rest of the
// system can be driven end to end without a GPU or a model file.
package demoruntime

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DimaJoyti/infer-wlm/internal/wlm/domain"
)

// Echo is a ModelRuntime that "predicts" by echoing each job's input back as
// a string, after sleeping for a simulated inference latency. It optionally
// fails a fraction of batches to exercise worker error handling.
type Echo struct {
	Latency     func() int64 // returns simulated latency in milliseconds; nil uses a fixed default
	FailureRate float64      // probability in [0,1] that a batch is failed outright
	FatalRate   float64      // probability (of a failed batch) that the failure is fatal
	logger      *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEcho constructs an Echo runtime. rngSeed lets callers make the
// simulated failure pattern reproducible in tests; latency comes from the
// Latency field or the fixed default, not from the seed.
func NewEcho(logger *zap.Logger, failureRate, fatalRate float64, rngSeed int64) *Echo {
	return &Echo{
		FailureRate: failureRate,
		FatalRate:   fatalRate,
		logger:      logger,
		rng:         rand.New(rand.NewSource(rngSeed)),
	}
}

func (e *Echo) Predict(ctx context.Context, batch []*domain.Job) ([]domain.Result, error) {
	delayMs := int64(20)
	if e.Latency != nil {
		delayMs = e.Latency()
	}

	timer := time.NewTimer(time.Duration(delayMs) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, domain.NewBatchError(ctx.Err())
	case <-timer.C:
	}

	if e.FailureRate > 0 && e.roll() < e.FailureRate {
		err := fmt.Errorf("demoruntime: simulated inference failure")
		if e.roll() < e.FatalRate {
			return nil, domain.NewFatalError(err)
		}
		return nil, domain.NewBatchError(err)
	}

	results := make([]domain.Result, len(batch))
	for i, job := range batch {
		results[i] = domain.Result{Value: fmt.Sprintf("echo(%v)#%s", job.Input, uuid.NewString())}
	}
	return results, nil
}

func (e *Echo) roll() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

func (e *Echo) OnWorkerStart(deviceID int) {
	if e.logger != nil {
		e.logger.Debug("demo runtime worker started", zap.Int("device_id", deviceID))
	}
}

func (e *Echo) OnWorkerStop() {
	if e.logger != nil {
		e.logger.Debug("demo runtime worker stopped")
	}
}
