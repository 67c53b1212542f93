package queue

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// HandlerFunc executes one job. Returning nil acknowledges the job;
// returning an error leaves it locked until redelivery.
type HandlerFunc func(ctx context.Context, j *Job) error

// Controller owns the job queue, its event stream and the worker pool, and
// routes dequeued jobs to handler logic by kind. Handlers are registered
// before Start; routing after that is read-only.
type Controller struct {
	log    *zap.Logger
	queue  *Queue
	events Events
	pool   *Pool

	handlers   map[Kind]HandlerFunc
	trawlBatch HandlerFunc
}

func NewController(q *Queue, events Events, concurrency int, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	if events == nil {
		events = NopEvents{}
	}
	c := &Controller{
		log:      log.With(zap.String("component", "queue.controller"), zap.String("queue", q.Name())),
		queue:    q,
		events:   events,
		handlers: make(map[Kind]HandlerFunc),
	}
	c.pool = NewPool(concurrency, q, events, c.Route, log)
	return c
}

func (c *Controller) Queue() *Queue { return c.queue }

// Register binds a handler to an exact job kind.
func (c *Controller) Register(kind Kind, fn HandlerFunc) {
	c.handlers[kind] = fn
}

// RegisterTrawlBatch binds the handler for all numbered trawl-batch kinds.
func (c *Controller) RegisterTrawlBatch(fn HandlerFunc) {
	c.trawlBatch = fn
}

// Route dispatches a job by kind. Unknown kinds are acknowledged-by-success
// and logged: failing them would requeue them forever.
func (c *Controller) Route(ctx context.Context, j *Job) error {
	if h, ok := c.handlers[j.Kind]; ok {
		return h(ctx, j)
	}
	if j.Kind.IsTrawlBatch() && c.trawlBatch != nil {
		return c.trawlBatch(ctx, j)
	}
	c.log.Warn("no handler for job kind, dropping",
		zap.String("job", j.ID), zap.String("kind", string(j.Kind)))
	return nil
}

// Start runs the populate handler once synchronously, so the queue has a
// backlog before the first timer tick, then starts the worker pool.
func (c *Controller) Start(ctx context.Context) error {
	if h, ok := c.handlers[KindPopulate]; ok {
		if err := h(ctx, NewJob(KindPopulate, "")); err != nil {
			return fmt.Errorf("initial populate: %w", err)
		}
	}
	c.pool.Start(ctx)
	return nil
}

// Pause stops dequeuing; queued jobs are retained.
func (c *Controller) Pause() { c.queue.Pause() }

// Resume restarts dequeuing.
func (c *Controller) Resume() { c.queue.Resume() }

// Stop drains in-flight jobs and releases the event stream.
func (c *Controller) Stop(ctx context.Context) error {
	err := c.queue.Stop(ctx)
	c.pool.Stop()
	if cerr := c.events.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
