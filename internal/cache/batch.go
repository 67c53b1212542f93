package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/nostrwatch/relaymon/internal/domain/relay"
)

// BatchOps apply a mutation to each element independently. Per-item
// failures are logged and excluded from the returned success list, never
// raised to the caller: one malformed record in a discovery batch must not
// abort the rest. Batches are not atomic across items; successes come back
// in input order.
type BatchOps struct{ c *Cache }

func (b *BatchOps) each(ctx context.Context, op string, rs []*relay.Relay, fn func(*relay.Relay) error) []*relay.Relay {
	ok := make([]*relay.Relay, 0, len(rs))
	for _, r := range rs {
		if err := fn(r); err != nil {
			url := ""
			if r != nil {
				url = r.URL
			}
			b.c.log.Warn("batch item failed",
				zap.String("op", op), zap.String("url", url), zap.Error(err))
			continue
		}
		ok = append(ok, r)
	}
	return ok
}

func (b *BatchOps) Insert(ctx context.Context, rs []*relay.Relay) []*relay.Relay {
	return b.each(ctx, "insert", rs, func(r *relay.Relay) error {
		return b.c.Insert(ctx, r)
	})
}

// InsertIfNotExists seeds records idempotently: already-known relays count
// as successes, they simply were not inserted again.
func (b *BatchOps) InsertIfNotExists(ctx context.Context, rs []*relay.Relay) []*relay.Relay {
	return b.each(ctx, "insertIfNotExists", rs, func(r *relay.Relay) error {
		_, err := b.c.InsertIfNotExists(ctx, r)
		return err
	})
}

func (b *BatchOps) Upsert(ctx context.Context, rs []*relay.Relay) []*relay.Relay {
	return b.each(ctx, "upsert", rs, func(r *relay.Relay) error {
		return b.c.Upsert(ctx, r)
	})
}

func (b *BatchOps) Update(ctx context.Context, rs []*relay.Relay) []*relay.Relay {
	return b.each(ctx, "update", rs, func(r *relay.Relay) error {
		return b.c.Update(ctx, r)
	})
}

func (b *BatchOps) Delete(ctx context.Context, rs []*relay.Relay) []*relay.Relay {
	return b.each(ctx, "delete", rs, func(r *relay.Relay) error {
		if r == nil {
			return ErrValidation
		}
		return b.c.Delete(ctx, r.URL)
	})
}
