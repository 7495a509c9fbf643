package jobs

import (
	"context"
	"time"
)

type Job struct {
	name    string
	timeout time.Duration
	run     func(ctx context.Context) error
}

func NewJob(name string, timeout time.Duration, run func(ctx context.Context) error) Job {
	return Job{name: name, timeout: timeout, run: run}
}

func (job Job) Name() string {
	return job.name
}

func (job Job) Run(ctx context.Context) error {
	if job.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.timeout)
		defer cancel()
	}
	return job.run(ctx)
}
