// Package store defines the minimal primitive contract any durable keyed
// store must satisfy, plus the backend-independent operations derived from
// it. Orchestration code depends only on this package, never on a concrete
// backend, so the whole pipeline runs unchanged against Postgres, SQLite or
// an in-memory map.
package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

// Doc is a stored record: a flat-keyed JSON object. Nested values are plain
// decoded JSON (map[string]any, []any, float64, string, bool, nil).
type Doc = map[string]any

// Backend is the primitive capability set a concrete store implements.
// Everything richer (exists, insert-if-not-exists, upsert, predicate
// selection) is built on top of these and must not be reimplemented per
// backend.
type Backend interface {
	// Get returns the document stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (Doc, error)
	// GetMeta returns a single top-level field of the document, or nil if
	// the field is absent. ErrNotFound if the key is absent.
	GetMeta(ctx context.Context, key, field string) (any, error)
	// GetOnline is a bulk existence probe: it returns the subset of keys
	// that are present, in input order.
	GetOnline(ctx context.Context, keys []string) ([]string, error)
	// Insert stores a new document. ErrExists if the key is taken.
	Insert(ctx context.Context, key string, doc Doc) error
	// Update replaces an existing document. ErrNotFound if absent.
	Update(ctx context.Context, key string, doc Doc) error
	// Patch shallow-merges fields onto an existing document: top-level keys
	// of fields overwrite, everything else is left alone. ErrNotFound if
	// absent.
	Patch(ctx context.Context, key string, fields Doc) error
	// Delete removes a document. ErrNotFound if absent.
	Delete(ctx context.Context, key string) error
	// DeleteIfExists removes a document if present and reports whether it
	// did. Absence is not an error.
	DeleteIfExists(ctx context.Context, key string) (bool, error)
	// Scan lazily yields key/document pairs whose key starts with prefix,
	// in key order. The sequence is finite and non-restartable; a backend
	// failure mid-scan ends the sequence.
	Scan(ctx context.Context, prefix string) iter.Seq2[string, Doc]

	Close() error
}

// Exists reports whether key holds a document.
func Exists(ctx context.Context, b Backend, key string) (bool, error) {
	_, err := b.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	return true, nil
}

// InsertIfNotExists inserts doc only when key is free. The returned bool
// distinguishes a real insert (true) from the no-op (false).
func InsertIfNotExists(ctx context.Context, b Backend, key string, doc Doc) (bool, error) {
	err := b.Insert(ctx, key, doc)
	if errors.Is(err, ErrExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", key, err)
	}
	return true, nil
}

// Upsert is the single source of truth for update-vs-insert: update when the
// key exists, insert otherwise.
func Upsert(ctx context.Context, b Backend, key string, doc Doc) error {
	ok, err := Exists(ctx, b, key)
	if err != nil {
		return err
	}
	if ok {
		return b.Update(ctx, key, doc)
	}
	return b.Insert(ctx, key, doc)
}
