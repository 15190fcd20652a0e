package domain

import (
	"sync"
	"time"
)

// Completion is the single-use sink a submitted Job reports its outcome
// through. Exactly one of Succeed or Fail is invoked for every Job that
// reaches a worker; a Job rejected at admission never touches it.
type Completion interface {
	Succeed(result any)
	Fail(err error)
}

// CompletionFunc adapts two plain functions into a Completion.
type CompletionFunc struct {
	OnSuccess func(result any)
	OnFailure func(err error)
}

func (f CompletionFunc) Succeed(result any) {
	if f.OnSuccess != nil {
		f.OnSuccess(result)
	}
}

func (f CompletionFunc) Fail(err error) {
	if f.OnFailure != nil {
		f.OnFailure(err)
	}
}

// Job is an immutable envelope around one inference request. Once handed to
// a JobQueue the submitter must not mutate it further.
type Job struct {
	Input      any
	EnqueuedAt time.Time

	completion Completion
	once       sync.Once
}

// NewJob wraps input and its completion sink into a submittable Job.
func NewJob(input any, completion Completion) *Job {
	return &Job{
		Input:      input,
		EnqueuedAt: time.Now(),
		completion: completion,
	}
}

// Succeed satisfies the completion with result. Only the first call among
// Succeed/Fail for this Job has any effect.
func (j *Job) Succeed(result any) {
	j.once.Do(func() {
		j.completion.Succeed(result)
	})
}

// Fail satisfies the completion with err. Only the first call among
// Succeed/Fail for this Job has any effect.
func (j *Job) Fail(err error) {
	j.once.Do(func() {
		j.completion.Fail(err)
	})
}

// Waited reports how long the job has been alive since enqueue, useful for
// logging and overdue detection.
func (j *Job) Waited() time.Duration {
	return time.Since(j.EnqueuedAt)
}
