package monitor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nostrwatch/relaymon/internal/cache"
	"github.com/nostrwatch/relaymon/internal/domain/relay"
	"github.com/nostrwatch/relaymon/internal/queue"
)

// CheckHandler executes probe jobs and reconciles results into the cache.
// Writes go through upsert so a redelivered job re-confirms the same fields
// instead of conflicting with itself.
type CheckHandler struct {
	log     *zap.Logger
	cache   *cache.Cache
	checker Checker
}

func NewCheckHandler(c *cache.Cache, checker Checker, log *zap.Logger) *CheckHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckHandler{
		log:     log.With(zap.String("component", "checker")),
		cache:   c,
		checker: checker,
	}
}

// checkOne probes a relay and merges the observation onto the stored
// record. A probe failure leaves the record untouched; the next populator
// cycle is the retry policy.
func (h *CheckHandler) checkOne(ctx context.Context, url string) *relay.Relay {
	res, err := h.checker.Check(ctx, url)
	if err != nil {
		mChecksFailed.Inc()
		h.log.Warn("probe failed, relay stays stale", zap.String("url", url), zap.Error(err))
		return nil
	}
	mChecksOK.Inc()

	cur, err := h.cache.Get.One(ctx, url)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			h.log.Warn("load current record", zap.String("url", url), zap.Error(err))
			return nil
		}
		cur = relay.New(url)
	}

	merge(cur, res)
	now := time.Now().UTC()
	cur.LastChecked = &now
	if cur.IsOnline() {
		cur.LastSeen = &now
	}
	return cur
}

// merge overlays the probe's observed fields onto the stored record,
// leaving unobserved dimensions alone.
func merge(cur, res *relay.Relay) {
	if res.Online != nil {
		cur.Online = res.Online
	}
	if res.Read != nil {
		cur.Read = res.Read
	}
	if res.Write != nil {
		cur.Write = res.Write
	}
	if res.Auth != nil {
		cur.Auth = res.Auth
	}
	if res.Dead != nil {
		cur.Dead = res.Dead
	}
	if res.Info != nil {
		cur.Info = res.Info
	}
	if res.DNS != nil {
		cur.DNS = res.DNS
	}
	if res.Geo != nil {
		cur.Geo = res.Geo
	}
	if res.SSL != nil {
		cur.SSL = res.SSL
	}
	if res.Retention != nil {
		cur.Retention = res.Retention
	}
}

// HandleCheck is the checkSingle job handler.
func (h *CheckHandler) HandleCheck(ctx context.Context, j *queue.Job) error {
	if j.RelayURL == "" {
		h.log.Warn("checkSingle job without url", zap.String("job", j.ID))
		return nil
	}
	r := h.checkOne(ctx, j.RelayURL)
	if r == nil {
		return nil
	}
	if err := h.cache.Upsert(ctx, r); err != nil {
		h.log.Warn("upsert check result", zap.String("url", r.URL), zap.Error(err))
	}
	return nil
}

// HandleTrawlBatch probes a discovery chunk: guarantee a skeletal record
// for every candidate, probe each, then reconcile the chunk in one batch
// upsert.
func (h *CheckHandler) HandleTrawlBatch(ctx context.Context, j *queue.Job) error {
	skeletal := make([]*relay.Relay, 0, len(j.RelayURLs))
	for _, url := range j.RelayURLs {
		skeletal = append(skeletal, relay.New(url))
	}
	h.cache.Batch.InsertIfNotExists(ctx, skeletal)

	checked := make([]*relay.Relay, 0, len(j.RelayURLs))
	for _, url := range j.RelayURLs {
		if r := h.checkOne(ctx, url); r != nil {
			checked = append(checked, r)
		}
	}
	h.cache.Batch.Upsert(ctx, checked)
	return nil
}
