// Package postgres is the durable store backend: one records table with a
// TEXT key and a JSONB document. Patch maps directly onto the JSONB shallow
// merge operator.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/jackc/pgx/v5"

	"github.com/nostrwatch/relaymon/internal/store"
)

type Backend struct {
	db *DB
}

var _ store.Backend = (*Backend)(nil)

func NewBackend(db *DB) *Backend { return &Backend{db: db} }

const (
	qGet = `SELECT doc FROM records WHERE key = $1;`

	qGetMeta = `SELECT doc -> $2 FROM records WHERE key = $1;`

	qGetOnline = `SELECT key FROM records WHERE key = ANY($1);`

	qInsert = `
INSERT INTO records (key, doc)
VALUES ($1, $2)
ON CONFLICT (key) DO NOTHING;
`

	qUpdate = `UPDATE records SET doc = $2, updated_at = NOW() WHERE key = $1;`

	qPatch = `UPDATE records SET doc = doc || $2::jsonb, updated_at = NOW() WHERE key = $1;`

	qDelete = `DELETE FROM records WHERE key = $1;`

	qScan = `SELECT key, doc FROM records WHERE key LIKE $1 || '%' ORDER BY key;`
)

func decodeDoc(raw []byte) (store.Doc, error) {
	var d store.Doc
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode doc: %w", err)
	}
	return d, nil
}

func (b *Backend) Get(ctx context.Context, key string) (store.Doc, error) {
	ctx, cancel := b.db.withTimeout(ctx)
	defer cancel()

	var raw []byte
	if err := b.db.Pool.QueryRow(ctx, qGet, key).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return decodeDoc(raw)
}

func (b *Backend) GetMeta(ctx context.Context, key, field string) (any, error) {
	ctx, cancel := b.db.withTimeout(ctx)
	defer cancel()

	var raw []byte
	if err := b.db.Pool.QueryRow(ctx, qGetMeta, key, field).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get meta: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	return v, nil
}

func (b *Backend) GetOnline(ctx context.Context, keys []string) ([]string, error) {
	ctx, cancel := b.db.withTimeout(ctx)
	defer cancel()

	rows, err := b.db.Pool.Query(ctx, qGetOnline, keys)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool, len(keys))
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		present[k] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	out := make([]string, 0, len(present))
	for _, k := range keys {
		if present[k] {
			out = append(out, k)
		}
	}
	return out, nil
}

func (b *Backend) Insert(ctx context.Context, key string, doc store.Doc) error {
	ctx, cancel := b.db.withTimeout(ctx)
	defer cancel()

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode doc: %w", err)
	}
	cmd, err := b.db.Pool.Exec(ctx, qInsert, key, raw)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return store.ErrExists
	}
	return nil
}

func (b *Backend) Update(ctx context.Context, key string, doc store.Doc) error {
	return b.exec(ctx, qUpdate, key, doc)
}

func (b *Backend) Patch(ctx context.Context, key string, fields store.Doc) error {
	return b.exec(ctx, qPatch, key, fields)
}

func (b *Backend) exec(ctx context.Context, q, key string, doc store.Doc) error {
	ctx, cancel := b.db.withTimeout(ctx)
	defer cancel()

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode doc: %w", err)
	}
	cmd, err := b.db.Pool.Exec(ctx, q, key, raw)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	ctx, cancel := b.db.withTimeout(ctx)
	defer cancel()

	cmd, err := b.db.Pool.Exec(ctx, qDelete, key)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (b *Backend) DeleteIfExists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := b.db.withTimeout(ctx)
	defer cancel()

	cmd, err := b.db.Pool.Exec(ctx, qDelete, key)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (b *Backend) Scan(ctx context.Context, prefix string) iter.Seq2[string, store.Doc] {
	return func(yield func(string, store.Doc) bool) {
		rows, err := b.db.Pool.Query(ctx, qScan, prefix)
		if err != nil {
			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				k   string
				raw []byte
			)
			if err := rows.Scan(&k, &raw); err != nil {
				return
			}
			d, err := decodeDoc(raw)
			if err != nil {
				return
			}
			if !yield(k, d) {
				return
			}
		}
	}
}

func (b *Backend) Close() error {
	b.db.Close()
	return nil
}
