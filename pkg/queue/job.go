package queue

import "context"

// Job defines a unit of work run by a pool.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Handle runs the job. The context is the one passed to Submit.
	Handle(ctx context.Context) error
}

// JobFunc adapts a function into a Job.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string { return j.JobName }

func (j JobFunc) Handle(ctx context.Context) error { return j.Fn(ctx) }

// NewJob wraps fn as a named Job.
func NewJob(name string, fn func(ctx context.Context) error) Job {
	return JobFunc{JobName: name, Fn: fn}
}
