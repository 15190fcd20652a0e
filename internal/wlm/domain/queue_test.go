package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobQueue_OfferFillsUpToCapacity(t *testing.T) {
	q := NewJobQueue(2)

	assert.True(t, q.Offer(NewJob(1, CompletionFunc{})))
	assert.True(t, q.Offer(NewJob(2, CompletionFunc{})))
	assert.False(t, q.Offer(NewJob(3, CompletionFunc{})))
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 2, q.Capacity())
}

func TestJobQueue_NewJobQueueClampsCapacityToOne(t *testing.T) {
	q := NewJobQueue(0)
	assert.Equal(t, 1, q.Capacity())
}

func TestJobQueue_OfferWaitSucceedsOnceRoomFrees(t *testing.T) {
	q := NewJobQueue(1)
	require.True(t, q.Offer(NewJob(1, CompletionFunc{})))

	go func() {
		time.Sleep(10 * time.Millisecond)
		<-q.ch
	}()

	ok := q.OfferWait(context.Background(), NewJob(2, CompletionFunc{}), 200*time.Millisecond)
	assert.True(t, ok)
}

func TestJobQueue_OfferWaitTimesOut(t *testing.T) {
	q := NewJobQueue(1)
	require.True(t, q.Offer(NewJob(1, CompletionFunc{})))

	ok := q.OfferWait(context.Background(), NewJob(2, CompletionFunc{}), 20*time.Millisecond)
	assert.False(t, ok)
}

func TestJobQueue_OfferWaitRespectsContextCancellation(t *testing.T) {
	q := NewJobQueue(1)
	require.True(t, q.Offer(NewJob(1, CompletionFunc{})))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok := q.OfferWait(ctx, NewJob(2, CompletionFunc{}), time.Second)
	assert.False(t, ok)
}

func TestJobQueue_PollBatchDrainsUpToMaxSize(t *testing.T) {
	q := NewJobQueue(8)
	for i := 0; i < 5; i++ {
		require.True(t, q.Offer(NewJob(i, CompletionFunc{})))
	}

	batch, err := q.PollBatch(context.Background(), 3, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, batch, 3)
	assert.Equal(t, 2, q.Len())
}

func TestJobQueue_PollBatchReturnsEmptyOnDelayTimeout(t *testing.T) {
	q := NewJobQueue(4)
	batch, err := q.PollBatch(context.Background(), 4, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestJobQueue_PollBatchReturnsErrorOnCancelBeforeFirstJob(t *testing.T) {
	q := NewJobQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := q.PollBatch(ctx, 4, time.Second)
	assert.Error(t, err)
	assert.Nil(t, batch)
}

func TestJobQueue_PollBatchPreservesFIFOOrder(t *testing.T) {
	q := NewJobQueue(8)
	for i := 0; i < 4; i++ {
		require.True(t, q.Offer(NewJob(i, CompletionFunc{})))
	}

	batch, err := q.PollBatch(context.Background(), 4, 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, batch, 4)
	for i, job := range batch {
		assert.Equal(t, i, job.Input)
	}
}
