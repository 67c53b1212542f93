package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/nostrwatch/relaymon/internal/domain/relay"
)

// IsQueries are boolean projections of stored health flags.
type IsQueries struct{ c *Cache }

func (q *IsQueries) flag(ctx context.Context, url, field string) (bool, error) {
	v, err := q.c.backend.GetMeta(ctx, relay.Key(url), field)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func (q *IsQueries) Online(ctx context.Context, url string) (bool, error) {
	return q.flag(ctx, url, "online")
}

func (q *IsQueries) Readable(ctx context.Context, url string) (bool, error) {
	return q.flag(ctx, url, "read")
}

func (q *IsQueries) Writable(ctx context.Context, url string) (bool, error) {
	return q.flag(ctx, url, "write")
}

func (q *IsQueries) Dead(ctx context.Context, url string) (bool, error) {
	return q.flag(ctx, url, "dead")
}

// Public reports that the relay requires neither payment nor auth.
func (q *IsQueries) Public(ctx context.Context, url string) (bool, error) {
	payment, err := q.c.Requires.Payment(ctx, url)
	if err != nil {
		return false, err
	}
	auth, err := q.c.Requires.Auth(ctx, url)
	if err != nil {
		return false, err
	}
	return !payment && !auth, nil
}

// HasQueries inspect the relay's capability document.
type HasQueries struct{ c *Cache }

// Limitation looks up a key of the information document's limitation
// object. A missing document or key is an expected, non-exceptional case
// for relays that publish partial NIP-11 data: it is logged at warn level
// and reported as a nil value, never as an error.
func (q *HasQueries) Limitation(ctx context.Context, url, key string) (any, error) {
	doc, err := q.c.relayDoc(ctx, url)
	if err != nil {
		return nil, err
	}
	lim, ok := lookup(doc, "info.limitation")
	if !ok || lim == nil {
		q.c.log.Warn("relay has no limitation document",
			zap.String("url", url), zap.String("key", key))
		return nil, nil
	}
	m, ok := lim.(map[string]any)
	if !ok {
		q.c.log.Warn("malformed limitation document", zap.String("url", url))
		return nil, nil
	}
	v, ok := m[key]
	if !ok {
		q.c.log.Warn("limitation key absent",
			zap.String("url", url), zap.String("key", key))
		return nil, nil
	}
	return v, nil
}

// RequiresQueries answer policy requirements derived from the capability
// document.
type RequiresQueries struct{ c *Cache }

func (q *RequiresQueries) Auth(ctx context.Context, url string) (bool, error) {
	v, err := q.c.Has.Limitation(ctx, url, "auth_required")
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func (q *RequiresQueries) Payment(ctx context.Context, url string) (bool, error) {
	v, err := q.c.Has.Limitation(ctx, url, "payment_required")
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

// LimitsQueries answer membership against a relay's declared operating
// countries.
type LimitsQueries struct{ c *Cache }

func (q *LimitsQueries) Countries(ctx context.Context, url string) ([]string, error) {
	doc, err := q.c.relayDoc(ctx, url)
	if err != nil {
		return nil, err
	}
	v, ok := lookup(doc, "info.relay_countries")
	if !ok {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (q *LimitsQueries) Country(ctx context.Context, url, countryCode string) (bool, error) {
	countries, err := q.Countries(ctx, url)
	if err != nil {
		return false, err
	}
	for _, cc := range countries {
		if cc == countryCode {
			return true, nil
		}
	}
	return false, nil
}
