package queue

import (
	"context"
	"time"
)

// Events is the queue's event stream: job lifecycle notifications for
// anything observing the pipeline. Emission is advisory; a failing stream
// must never fail the job it describes.
type Events interface {
	JobEnqueued(ctx context.Context, j *Job)
	JobCompleted(ctx context.Context, j *Job, took time.Duration)
	JobFailed(ctx context.Context, j *Job, jobErr error)
	Close() error
}

// NopEvents discards all events.
type NopEvents struct{}

func (NopEvents) JobEnqueued(context.Context, *Job)                 {}
func (NopEvents) JobCompleted(context.Context, *Job, time.Duration) {}
func (NopEvents) JobFailed(context.Context, *Job, error)            {}
func (NopEvents) Close() error                                      { return nil }
