package cache

import (
	"context"

	"github.com/nostrwatch/relaymon/internal/domain/relay"
)

// GetQueries are the derived read helpers, each delegating to Select or the
// backend's keyed get.
type GetQueries struct{ c *Cache }

// Shared capability predicates.
func predPaid() Predicate {
	return Eq("info.limitation.payment_required", true)
}

func predPublic() Predicate {
	return And(
		Not(Eq("info.limitation.payment_required", true)),
		Not(Eq("info.limitation.auth_required", true)),
	)
}

func predSupportsNIP(nip int) Predicate {
	return Contains("info.supported_nips", nip)
}

// One fetches a single relay by url.
func (g *GetQueries) One(ctx context.Context, url string) (*relay.Relay, error) {
	doc, err := g.c.relayDoc(ctx, url)
	if err != nil {
		return nil, err
	}
	return decode(doc)
}

// All returns every stored relay.
func (g *GetQueries) All(ctx context.Context) ([]*relay.Relay, error) {
	return g.c.selectRelays(ctx, nil), ctx.Err()
}

// AllIDs returns every store key without decoding records.
func (g *GetQueries) AllIDs(ctx context.Context) ([]string, error) {
	var out []string
	for key := range g.c.backend.Scan(ctx, relay.KeyPrefix) {
		out = append(out, key)
	}
	return out, ctx.Err()
}

// Online returns relays whose last probe connected.
func (g *GetQueries) Online(ctx context.Context) ([]*relay.Relay, error) {
	return g.c.selectRelays(ctx, Eq("online", true)), ctx.Err()
}

// Network returns relays on the given transport family (clearnet, tor, ...).
func (g *GetQueries) Network(ctx context.Context, kind string) ([]*relay.Relay, error) {
	return g.c.selectRelays(ctx, Eq("network", kind)), ctx.Err()
}

// Public returns relays that require neither payment nor auth.
func (g *GetQueries) Public(ctx context.Context) ([]*relay.Relay, error) {
	return g.c.selectRelays(ctx, predPublic()), ctx.Err()
}

// Paid returns relays that declare payment_required.
func (g *GetQueries) Paid(ctx context.Context) ([]*relay.Relay, error) {
	return g.c.selectRelays(ctx, predPaid()), ctx.Err()
}

// SupportsNIP returns relays whose information document advertises nip.
func (g *GetQueries) SupportsNIP(ctx context.Context, nip int) ([]*relay.Relay, error) {
	return g.c.selectRelays(ctx, predSupportsNIP(nip)), ctx.Err()
}

// DoesNotSupportNIP returns relays that do not advertise nip, including
// relays with no information document at all.
func (g *GetQueries) DoesNotSupportNIP(ctx context.Context, nip int) ([]*relay.Relay, error) {
	return g.c.selectRelays(ctx, Not(predSupportsNIP(nip))), ctx.Err()
}
