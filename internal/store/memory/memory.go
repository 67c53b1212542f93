// Package memory is the in-memory store backend: a mutex-guarded map,
// suitable for tests and ephemeral runs.
package memory

import (
	"context"
	"iter"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/nostrwatch/relaymon/internal/store"
)

type Backend struct {
	mu   sync.RWMutex
	docs map[string]store.Doc
}

var _ store.Backend = (*Backend)(nil)

func New() *Backend {
	return &Backend{docs: make(map[string]store.Doc)}
}

// clone guards callers against aliasing the stored top-level map. Nested
// values are shared; the cache layer treats documents as read-only.
func clone(d store.Doc) store.Doc {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}

func (b *Backend) Get(_ context.Context, key string) (store.Doc, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, ok := b.docs[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(d), nil
}

func (b *Backend) GetMeta(_ context.Context, key, field string) (any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, ok := b.docs[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return d[field], nil
}

func (b *Backend) GetOnline(_ context.Context, keys []string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := b.docs[k]; ok {
			out = append(out, k)
		}
	}
	return out, nil
}

func (b *Backend) Insert(_ context.Context, key string, doc store.Doc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.docs[key]; ok {
		return store.ErrExists
	}
	b.docs[key] = clone(doc)
	return nil
}

func (b *Backend) Update(_ context.Context, key string, doc store.Doc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.docs[key]; !ok {
		return store.ErrNotFound
	}
	b.docs[key] = clone(doc)
	return nil
}

func (b *Backend) Patch(_ context.Context, key string, fields store.Doc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.docs[key]
	if !ok {
		return store.ErrNotFound
	}
	merged := clone(d)
	for k, v := range fields {
		merged[k] = v
	}
	b.docs[key] = merged
	return nil
}

func (b *Backend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.docs[key]; !ok {
		return store.ErrNotFound
	}
	delete(b.docs, key)
	return nil
}

func (b *Backend) DeleteIfExists(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.docs[key]; !ok {
		return false, nil
	}
	delete(b.docs, key)
	return true, nil
}

func (b *Backend) Scan(ctx context.Context, prefix string) iter.Seq2[string, store.Doc] {
	b.mu.RLock()
	keys := make([]string, 0, len(b.docs))
	for k := range b.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	b.mu.RUnlock()
	slices.Sort(keys)

	return func(yield func(string, store.Doc) bool) {
		for _, k := range keys {
			if ctx.Err() != nil {
				return
			}
			b.mu.RLock()
			d, ok := b.docs[k]
			if ok {
				d = clone(d)
			}
			b.mu.RUnlock()
			if !ok {
				continue // deleted between snapshot and yield
			}
			if !yield(k, d) {
				return
			}
		}
	}
}

func (b *Backend) Close() error { return nil }
