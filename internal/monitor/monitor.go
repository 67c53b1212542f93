// Package monitor holds the orchestration handlers that drive the relay
// pipeline: the populator that decides which relays are due for a check,
// the check handlers that execute probes and reconcile results into the
// cache, and the trawler that seeds and batch-crawls discovered candidates.
package monitor

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nostrwatch/relaymon/internal/domain/relay"
	"github.com/nostrwatch/relaymon/internal/queue"
)

// Checker is the opaque probe capability. A failing check must not crash
// the worker: the handler catches it and the relay keeps its stale fields
// until the next cycle.
type Checker interface {
	Check(ctx context.Context, url string) (*relay.Relay, error)
}

// Bootstrap produces the candidate relay set for trawling/population.
type Bootstrap interface {
	Bootstrap(ctx context.Context, daemon string) (urls []string, at time.Time, err error)
}

// workQueue is the slice of the queue the trawler and populator need.
type workQueue interface {
	Enqueue(ctx context.Context, j *queue.Job) error
	Pause()
	Resume()
}

var (
	mRelaysDue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_relays_due_total", Help: "Relays found due for a check",
	})
	mChecksOK = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_checks_ok_total", Help: "Probes that returned a result",
	})
	mChecksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_checks_failed_total", Help: "Probes that failed; relay left stale",
	})
	mSeeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_relays_seeded_total", Help: "Skeletal records seeded by the trawler",
	})
	mChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_trawl_chunks_total", Help: "Trawl batch jobs enqueued",
	})
	mSweepSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_sweeps_skipped_total", Help: "Check sweeps skipped because one was running",
	})
)
