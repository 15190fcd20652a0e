package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorker(id int64, permanent bool, state State) *Worker {
	q := NewJobQueue(1)
	agg := NewPermanentAggregator(q, 1, 0)
	rt := &fakeRuntime{predict: echoResults}
	w := NewWorker(id, CPUDevice, permanent, "m", agg, rt, context.Background(), nil, nil)
	w.state.Store(int32(state))
	return w
}

func TestWorkerPool_WorkersReturnsImmutableSnapshot(t *testing.T) {
	p := NewWorkerPool(ModelInfo{Name: "m", MaxWorkers: 4, BatchSize: 1, QueueSize: 1}, nil)

	p.Lock()
	p.AppendWorker(newTestWorker(1, true, StateWaiting))
	p.Unlock()

	snapshot := p.Workers()
	require.Len(t, snapshot, 1)

	p.Lock()
	p.AppendWorker(newTestWorker(2, true, StateWaiting))
	p.Unlock()

	assert.Len(t, snapshot, 1, "previously taken snapshot must not observe later mutation")
	assert.Len(t, p.Workers(), 2)
}

func TestWorkerPool_CleanupRemovesTerminalWorkers(t *testing.T) {
	p := NewWorkerPool(ModelInfo{Name: "m", MaxWorkers: 4, BatchSize: 1, QueueSize: 1}, nil)

	p.Lock()
	p.AppendWorker(newTestWorker(1, true, StateWaiting))
	p.AppendWorker(newTestWorker(2, true, StateStopped))
	p.AppendWorker(newTestWorker(3, false, StateScaledDown))
	p.AppendWorker(newTestWorker(4, true, StateError))
	p.Unlock()

	p.Cleanup()

	remaining := p.Workers()
	require.Len(t, remaining, 1)
	assert.Equal(t, int64(1), remaining[0].ID)
}

func TestWorkerPool_PermanentAndRunningCounts(t *testing.T) {
	p := NewWorkerPool(ModelInfo{Name: "m", MaxWorkers: 4, BatchSize: 1, QueueSize: 1}, nil)

	p.Lock()
	p.AppendWorker(newTestWorker(1, true, StateWaiting))
	p.AppendWorker(newTestWorker(2, true, StateRunning))
	p.AppendWorker(newTestWorker(3, false, StateWaiting))
	p.AppendWorker(newTestWorker(4, true, StateStopped))
	p.Unlock()

	assert.Equal(t, 2, p.PermanentCount())
	assert.Equal(t, 3, p.RunningCount())
}

func TestWorkerPool_RemoveWorkersDropsOnlyGivenWorkers(t *testing.T) {
	p := NewWorkerPool(ModelInfo{Name: "m", MaxWorkers: 4, BatchSize: 1, QueueSize: 1}, nil)

	keep := newTestWorker(1, true, StateWaiting)
	drop := newTestWorker(2, true, StateWaiting)

	p.Lock()
	p.AppendWorker(keep)
	p.AppendWorker(drop)
	p.RemoveWorkers([]*Worker{drop})
	p.Unlock()

	assert.Equal(t, []*Worker{keep}, p.Workers())
}

func TestWorkerPool_ModelAndRuntimeRoundTrip(t *testing.T) {
	model := ModelInfo{Name: "m", MaxWorkers: 4, BatchSize: 1, QueueSize: 1}
	p := NewWorkerPool(model, nil)

	assert.Equal(t, model, p.Model())
	assert.Nil(t, p.Runtime())

	rt := &fakeRuntime{predict: echoResults}
	p.SetRuntime(rt)
	assert.Same(t, rt, p.Runtime())

	updated := model
	updated.MinWorkers = 2
	p.SetModel(updated)
	assert.Equal(t, 2, p.Model().MinWorkers)
}

func TestWorkerPool_NextWorkerIDIsMonotonic(t *testing.T) {
	p := NewWorkerPool(ModelInfo{Name: "m", MaxWorkers: 1, BatchSize: 1, QueueSize: 1}, nil)
	assert.Equal(t, int64(1), p.NextWorkerID())
	assert.Equal(t, int64(2), p.NextWorkerID())
}
