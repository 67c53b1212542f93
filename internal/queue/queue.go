// Package queue is the in-process job queue and its bounded worker pool:
// at-least-once delivery with a lock (visibility) duration, pause/resume
// without dropping jobs, and kind-based routing through the controller.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrStopped = errors.New("queue stopped")

const defaultWakeInterval = 250 * time.Millisecond

type delivery struct {
	job      *Job
	deadline time.Time
}

// Queue is a named FIFO job queue. Dequeued jobs stay invisible for the
// lock duration; a job not acked within it is considered abandoned and
// redelivered. Pause stops dequeuing without dropping anything.
type Queue struct {
	name    string
	lockDur time.Duration
	log     *zap.Logger
	events  Events

	mu       sync.Mutex
	pending  []*Job
	inflight map[string]*delivery
	paused   bool
	stopped  bool

	wake chan struct{}
}

func New(name string, lockDur time.Duration, events Events, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	if events == nil {
		events = NopEvents{}
	}
	if lockDur <= 0 {
		lockDur = time.Minute
	}
	return &Queue{
		name:     name,
		lockDur:  lockDur,
		log:      log.With(zap.String("component", "queue"), zap.String("queue", name)),
		events:   events,
		inflight: make(map[string]*delivery),
		wake:     make(chan struct{}, 1),
	}
}

func (q *Queue) Name() string { return q.name }

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Enqueue appends a job. Jobs enqueued in sequence are delivered in input
// order, though execution order across workers is unordered once
// concurrency exceeds one.
func (q *Queue) Enqueue(ctx context.Context, j *Job) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrStopped
	}
	q.pending = append(q.pending, j)
	q.mu.Unlock()

	q.events.JobEnqueued(ctx, j)
	q.signal()
	return nil
}

// Dequeue blocks until a job is available and the queue is neither paused
// nor stopped. The returned job is locked for the lock duration.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	for {
		q.mu.Lock()
		now := time.Now()
		q.requeueExpiredLocked(now)

		if q.stopped {
			q.mu.Unlock()
			return nil, ErrStopped
		}
		if !q.paused && len(q.pending) > 0 {
			j := q.pending[0]
			q.pending = q.pending[1:]
			j.Attempts++
			q.inflight[j.ID] = &delivery{job: j, deadline: now.Add(q.lockDur)}
			more := len(q.pending) > 0
			q.mu.Unlock()
			if more {
				q.signal() // keep sibling workers awake
			}
			return j, nil
		}
		wait := q.nextWakeLocked(now)
		q.mu.Unlock()

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-q.wake:
			t.Stop()
		case <-t.C:
		}
	}
}

// nextWakeLocked bounds how long a dequeuer may sleep: until the earliest
// lock deadline, capped so paused/raced wakeups are always recovered.
func (q *Queue) nextWakeLocked(now time.Time) time.Duration {
	wait := defaultWakeInterval
	for _, d := range q.inflight {
		if until := d.deadline.Sub(now); until < wait {
			wait = until
		}
	}
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

func (q *Queue) requeueExpiredLocked(now time.Time) {
	for id, d := range q.inflight {
		if now.Before(d.deadline) {
			continue
		}
		delete(q.inflight, id)
		q.pending = append(q.pending, d.job)
		q.log.Warn("job lock expired, redelivering",
			zap.String("job", id), zap.String("kind", string(d.job.Kind)),
			zap.Int("attempts", d.job.Attempts))
	}
}

// Ack marks a job done and releases its lock. Unknown ids are ignored: the
// lock may already have expired and the job been redelivered.
func (q *Queue) Ack(id string) {
	q.mu.Lock()
	delete(q.inflight, id)
	q.mu.Unlock()
}

// Pause stops dequeuing without dropping queued jobs.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
}

// Resume restarts dequeuing.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	q.signal()
}

// Stop refuses further enqueues and dequeues, then waits for in-flight
// jobs to drain or ctx to expire.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.signal()

	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		q.mu.Lock()
		n := len(q.inflight)
		q.mu.Unlock()
		if n == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

// Len returns the number of queued (not in-flight) jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// InFlight returns the number of dequeued, unacknowledged jobs.
func (q *Queue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inflight)
}
