package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	mJobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_jobs_processed_total", Help: "Jobs handled to completion",
	}, []string{"queue", "kind"})
	mJobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_jobs_failed_total", Help: "Jobs whose handler returned an error",
	}, []string{"queue", "kind"})
	mJobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "queue_job_duration_seconds", Help: "Handler execution time",
		Buckets: prometheus.DefBuckets,
	}, []string{"queue"})
)

// Pool runs up to n workers against a queue, routing each dequeued job
// through route. A handler error leaves the job unacknowledged so the lock
// duration redelivers it; handlers must therefore be idempotent-safe.
type Pool struct {
	n      int
	queue  *Queue
	events Events
	route  func(ctx context.Context, j *Job) error
	log    *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewPool(n int, q *Queue, events Events, route func(context.Context, *Job) error, log *zap.Logger) *Pool {
	if n <= 0 {
		n = 1 // serial by default: relay checks are I/O-heavy
	}
	if log == nil {
		log = zap.NewNop()
	}
	if events == nil {
		events = NopEvents{}
	}
	return &Pool{
		n:      n,
		queue:  q,
		events: events,
		route:  route,
		log:    log.With(zap.String("component", "queue.pool"), zap.String("queue", q.Name())),
	}
}

func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
	p.log.Info("worker pool started", zap.Int("concurrency", p.n))
}

func (p *Pool) run(ctx context.Context) {
	for {
		j, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrStopped) || errors.Is(err, context.Canceled) {
				return
			}
			p.log.Warn("dequeue failed", zap.Error(err))
			continue
		}

		start := time.Now()
		if err := p.route(ctx, j); err != nil {
			mJobsFailed.WithLabelValues(p.queue.Name(), string(j.Kind)).Inc()
			p.events.JobFailed(ctx, j, err)
			p.log.Error("job handler failed, leaving for redelivery",
				zap.String("job", j.ID), zap.String("kind", string(j.Kind)),
				zap.Int("attempts", j.Attempts), zap.Error(err))
			continue
		}

		p.queue.Ack(j.ID)
		took := time.Since(start)
		mJobsProcessed.WithLabelValues(p.queue.Name(), string(j.Kind)).Inc()
		mJobDuration.WithLabelValues(p.queue.Name()).Observe(took.Seconds())
		p.events.JobCompleted(ctx, j, took)
	}
}

// Stop cancels the workers and waits for them to exit.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}
