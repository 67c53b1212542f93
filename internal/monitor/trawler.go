package monitor

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/nostrwatch/relaymon/internal/cache"
	"github.com/nostrwatch/relaymon/internal/domain/relay"
	"github.com/nostrwatch/relaymon/internal/obs"
	"github.com/nostrwatch/relaymon/internal/queue"
)

const DefaultChunkSize = 50

// Trawler turns freshly bootstrapped candidate lists into cache records and
// batched crawl jobs.
type Trawler struct {
	log       *zap.Logger
	cache     *cache.Cache
	q         workQueue
	bootstrap Bootstrap
	chunkSize int
	daemon    string

	// busy guards the full-cache sweep: one at a time, concurrent
	// triggers are silent no-ops.
	busy atomic.Bool
}

func NewTrawler(c *cache.Cache, q workQueue, bootstrap Bootstrap, chunkSize int, daemon string, log *zap.Logger) *Trawler {
	if log == nil {
		log = zap.NewNop()
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Trawler{
		log:       log.With(zap.String("component", "trawler")),
		cache:     c,
		q:         q,
		bootstrap: bootstrap,
		chunkSize: chunkSize,
		daemon:    daemon,
	}
}

// Seed maps candidate urls into skeletal records and inserts the unknown
// ones. Idempotent against relays already in the cache.
func (t *Trawler) Seed(ctx context.Context, urls []string) []*relay.Relay {
	records := make([]*relay.Relay, 0, len(urls))
	for _, u := range urls {
		records = append(records, relay.New(u))
	}
	seeded := t.cache.Batch.InsertIfNotExists(ctx, records)
	mSeeded.Add(float64(len(seeded)))
	return seeded
}

// Trawl partitions the candidate list into fixed-size chunks and enqueues
// one job per chunk, in input order. The worker pool is paused for the
// whole enqueue sequence and resumed exactly once at the end, so no worker
// drains a partial view of the trawl.
func (t *Trawler) Trawl(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	t.q.Pause()
	defer t.q.Resume()

	n := 0
	for chunk := range slices.Chunk(urls, t.chunkSize) {
		j := queue.NewBatchJob(queue.KindTrawlBatch(n), chunk)
		if err := t.q.Enqueue(ctx, j); err != nil {
			return fmt.Errorf("enqueue trawl chunk %d: %w", n, err)
		}
		mChunks.Inc()
		n++
	}
	t.log.Debug("trawl enqueued", zap.Int("candidates", len(urls)), zap.Int("chunks", n))
	return nil
}

// Sync runs one full discovery sweep: bootstrap candidates, seed the cache,
// trawl the list.
func (t *Trawler) Sync(ctx context.Context) error {
	tr := otel.Tracer("monitor.trawler")
	ctx, span := tr.Start(ctx, "trawler.sync")
	defer span.End()

	urls, at, err := t.bootstrap.Bootstrap(ctx, t.daemon)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("bootstrap: %w", err)
	}
	span.SetAttributes(
		attribute.Int("bootstrap.candidates", len(urls)),
		attribute.String("bootstrap.at", at.String()),
	)

	seeded := t.Seed(ctx, urls)
	obs.WithTrace(ctx, t.log).Info("sync sweep",
		zap.Int("candidates", len(urls)), zap.Int("seeded", len(seeded)))
	return t.Trawl(ctx, urls)
}

// MaybeCheckRelays runs Sync unless a sweep is already in flight, in which
// case it is a silent no-op.
func (t *Trawler) MaybeCheckRelays(ctx context.Context) error {
	if !t.busy.CompareAndSwap(false, true) {
		mSweepSkipped.Inc()
		t.log.Debug("sweep already running, skipping")
		return nil
	}
	defer t.busy.Store(false)
	return t.Sync(ctx)
}
