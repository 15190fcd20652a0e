package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJob_SucceedOnlyFiresOnce(t *testing.T) {
	var successes, failures int
	job := NewJob("payload", CompletionFunc{
		OnSuccess: func(result any) { successes++ },
		OnFailure: func(err error) { failures++ },
	})

	job.Succeed("result-1")
	job.Succeed("result-2")
	job.Fail(errors.New("too late"))

	assert.Equal(t, 1, successes)
	assert.Equal(t, 0, failures)
}

func TestJob_FailOnlyFiresOnce(t *testing.T) {
	var failures int
	var lastErr error
	job := NewJob(nil, CompletionFunc{
		OnFailure: func(err error) {
			failures++
			lastErr = err
		},
	})

	first := errors.New("first")
	job.Fail(first)
	job.Fail(errors.New("second"))

	assert.Equal(t, 1, failures)
	assert.Equal(t, first, lastErr)
}

func TestJob_WaitedGrowsOverTime(t *testing.T) {
	job := NewJob(1, CompletionFunc{})
	first := job.Waited()
	time.Sleep(2 * time.Millisecond)
	assert.Greater(t, job.Waited(), first)
}
