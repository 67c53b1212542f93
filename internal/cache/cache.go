// Package cache builds the relay query/mutation API on top of the primitive
// store backend: validated CRUD, batch operations with per-item failure
// isolation, predicate selection and derived capability lookups.
package cache

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/nostrwatch/relaymon/internal/domain/relay"
	"github.com/nostrwatch/relaymon/internal/store"
)

// ErrValidation marks a malformed record (missing url). ErrNotFound is
// store.ErrNotFound, re-exported so callers need only this package.
var (
	ErrValidation = errors.New("invalid relay record")
	ErrNotFound   = store.ErrNotFound
)

// Cache is the relay record store. The query helpers are explicit
// sub-components, each holding a reference back to the cache.
type Cache struct {
	backend store.Backend
	log     *zap.Logger

	Get      *GetQueries
	Count    *CountQueries
	Is       *IsQueries
	Has      *HasQueries
	Requires *RequiresQueries
	Supports *SupportsQueries
	Limits   *LimitsQueries
	Batch    *BatchOps
}

func New(b store.Backend, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Cache{
		backend: b,
		log:     log.With(zap.String("component", "relay.cache")),
	}
	c.Get = &GetQueries{c: c}
	c.Count = &CountQueries{c: c}
	c.Is = &IsQueries{c: c}
	c.Has = &HasQueries{c: c}
	c.Requires = &RequiresQueries{c: c}
	c.Supports = &SupportsQueries{c: c}
	c.Limits = &LimitsQueries{c: c}
	c.Batch = &BatchOps{c: c}
	return c
}

func validate(r *relay.Relay) error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrValidation)
	}
	if r.URL == "" {
		return fmt.Errorf("%w: missing url", ErrValidation)
	}
	return nil
}

// Insert stores a new record keyed by the hash of its canonical url.
func (c *Cache) Insert(ctx context.Context, r *relay.Relay) error {
	if err := validate(r); err != nil {
		return err
	}
	doc, err := encode(r)
	if err != nil {
		return err
	}
	return c.backend.Insert(ctx, relay.Key(r.URL), doc)
}

// InsertIfNotExists inserts only when the relay is unknown and reports
// whether it did. An already-present relay is a no-op, not an error.
func (c *Cache) InsertIfNotExists(ctx context.Context, r *relay.Relay) (bool, error) {
	if err := validate(r); err != nil {
		return false, err
	}
	doc, err := encode(r)
	if err != nil {
		return false, err
	}
	return store.InsertIfNotExists(ctx, c.backend, relay.Key(r.URL), doc)
}

// Update fully replaces an existing record. The key is re-derived from the
// url, so the url must match the stored record.
func (c *Cache) Update(ctx context.Context, r *relay.Relay) error {
	if err := validate(r); err != nil {
		return err
	}
	doc, err := encode(r)
	if err != nil {
		return err
	}
	return c.backend.Update(ctx, relay.Key(r.URL), doc)
}

// Patch shallow-merges fields onto the stored record. The url and identity
// key are stripped from the patch first: a patch payload must never alter
// identity.
func (c *Cache) Patch(ctx context.Context, url string, fields store.Doc) error {
	if url == "" {
		return fmt.Errorf("%w: missing url", ErrValidation)
	}
	stripped := make(store.Doc, len(fields))
	for k, v := range fields {
		if k == "url" || k == "id" {
			continue
		}
		stripped[k] = v
	}
	return c.backend.Patch(ctx, relay.Key(url), stripped)
}

// Upsert validates first, then updates or inserts depending on presence.
func (c *Cache) Upsert(ctx context.Context, r *relay.Relay) error {
	if err := validate(r); err != nil {
		return err
	}
	doc, err := encode(r)
	if err != nil {
		return err
	}
	return store.Upsert(ctx, c.backend, relay.Key(r.URL), doc)
}

// Delete removes the record for url. ErrNotFound if absent.
func (c *Cache) Delete(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("%w: missing url", ErrValidation)
	}
	return c.backend.Delete(ctx, relay.Key(url))
}

// Select lazily yields documents matching pred, projected down to fields
// (nil fields = full document). The sequence is finite, evaluated on demand
// and not restartable.
func (c *Cache) Select(ctx context.Context, fields []string, pred Predicate) iter.Seq[store.Doc] {
	return func(yield func(store.Doc) bool) {
		for _, doc := range c.backend.Scan(ctx, relay.KeyPrefix) {
			if pred != nil && !pred(doc) {
				continue
			}
			if !yield(project(doc, fields)) {
				return
			}
		}
	}
}

func project(doc store.Doc, fields []string) store.Doc {
	if fields == nil {
		return doc
	}
	out := make(store.Doc, len(fields))
	for _, f := range fields {
		if v, ok := lookup(doc, f); ok {
			out[f] = v
		}
	}
	return out
}

// selectRelays decodes matching documents into typed records. Documents that
// fail to decode are logged and skipped, not surfaced.
func (c *Cache) selectRelays(ctx context.Context, pred Predicate) []*relay.Relay {
	var out []*relay.Relay
	for doc := range c.Select(ctx, nil, pred) {
		r, err := decode(doc)
		if err != nil {
			c.log.Warn("undecodable record skipped", zap.Error(err))
			continue
		}
		out = append(out, r)
	}
	return out
}

// relayDoc fetches a record by url. Used by the single-relay query helpers.
func (c *Cache) relayDoc(ctx context.Context, url string) (store.Doc, error) {
	return c.backend.Get(ctx, relay.Key(url))
}
