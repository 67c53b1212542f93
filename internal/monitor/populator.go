package monitor

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/nostrwatch/relaymon/internal/cache"
	"github.com/nostrwatch/relaymon/internal/obs"
	"github.com/nostrwatch/relaymon/internal/queue"
)

// Populator reads the cache to decide which relays are due for a check and
// enqueues one job per relay. It runs once at worker startup and on every
// check-cadence tick.
type Populator struct {
	log    *zap.Logger
	cache  *cache.Cache
	q      workQueue
	expiry time.Duration
}

func NewPopulator(c *cache.Cache, q workQueue, expiry time.Duration, log *zap.Logger) *Populator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Populator{
		log:    log.With(zap.String("component", "populator")),
		cache:  c,
		q:      q,
		expiry: expiry,
	}
}

// due matches relays never checked, or last checked beyond the expiry.
// Timestamps are stored RFC 3339; anything unparseable counts as never
// checked so a corrupt field cannot exempt a relay from probing forever.
func due(cutoff time.Time) cache.Predicate {
	return cache.And(
		cache.Not(cache.Eq("dead", true)),
		cache.Field("last_checked", func(v any) bool {
			s, ok := v.(string)
			if !ok {
				return true
			}
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return true
			}
			return t.Before(cutoff)
		}),
	)
}

// Populate enumerates due relays and enqueues a checkSingle job for each.
// Safe to run concurrently with itself: enqueueing the same relay twice
// only costs a redundant, idempotent re-check.
func (p *Populator) Populate(ctx context.Context) error {
	tr := otel.Tracer("monitor.populator")
	ctx, span := tr.Start(ctx, "populator.populate")
	defer span.End()

	cutoff := time.Now().Add(-p.expiry)
	enqueued, errs := 0, 0
	for doc := range p.cache.Select(ctx, []string{"url"}, due(cutoff)) {
		url, ok := doc["url"].(string)
		if !ok {
			continue
		}
		mRelaysDue.Inc()
		if err := p.q.Enqueue(ctx, queue.NewJob(queue.KindCheckSingle, url)); err != nil {
			errs++
			p.log.Warn("enqueue check", zap.String("url", url), zap.Error(err))
			continue
		}
		enqueued++
	}

	span.SetAttributes(
		attribute.Int("populate.enqueued", enqueued),
		attribute.Int("populate.errors", errs),
	)
	if enqueued > 0 || errs > 0 {
		obs.WithTrace(ctx, p.log).Debug("populated",
			zap.Int("enqueued", enqueued), zap.Int("errors", errs))
	}
	if errs > 0 && enqueued == 0 {
		return fmt.Errorf("populate: all %d enqueues failed", errs)
	}
	return nil
}

// Job adapts Populate to the queue's handler signature.
func (p *Populator) Job(ctx context.Context, _ *queue.Job) error {
	return p.Populate(ctx)
}
