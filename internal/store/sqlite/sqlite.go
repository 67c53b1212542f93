// Package sqlite is the embedded store backend, for single-node deployments
// that want durability without a database server. Uses the cgo-free
// modernc.org driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	_ "modernc.org/sqlite"

	"github.com/nostrwatch/relaymon/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	key        TEXT PRIMARY KEY,
	doc        TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
`

type Backend struct {
	db *sql.DB
}

var _ store.Backend = (*Backend)(nil)

// Open creates or opens the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*Backend, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The driver serializes writes; a single connection avoids SQLITE_BUSY
	// churn under concurrent workers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Get(ctx context.Context, key string) (store.Doc, error) {
	var raw string
	err := b.db.QueryRowContext(ctx, `SELECT doc FROM records WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	var d store.Doc
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decode doc: %w", err)
	}
	return d, nil
}

func (b *Backend) GetMeta(ctx context.Context, key, field string) (any, error) {
	d, err := b.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return d[field], nil
}

func (b *Backend) GetOnline(ctx context.Context, keys []string) ([]string, error) {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		var one int
		err := b.db.QueryRowContext(ctx, `SELECT 1 FROM records WHERE key = ?`, k).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("probe key: %w", err)
		}
		out = append(out, k)
	}
	return out, nil
}

func (b *Backend) Insert(ctx context.Context, key string, doc store.Doc) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode doc: %w", err)
	}
	res, err := b.db.ExecContext(ctx,
		`INSERT INTO records (key, doc) VALUES (?, ?) ON CONFLICT (key) DO NOTHING`, key, string(raw))
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrExists
	}
	return nil
}

func (b *Backend) Update(ctx context.Context, key string, doc store.Doc) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode doc: %w", err)
	}
	res, err := b.db.ExecContext(ctx,
		`UPDATE records SET doc = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now') WHERE key = ?`,
		string(raw), key)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Patch reads, shallow-merges and rewrites inside one transaction. SQLite's
// json_patch is a deep merge, which is not the contract here.
func (b *Backend) Patch(ctx context.Context, key string, fields store.Doc) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT doc FROM records WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}

	var d store.Doc
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return fmt.Errorf("decode doc: %w", err)
	}
	for k, v := range fields {
		d[k] = v
	}
	merged, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode doc: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET doc = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now') WHERE key = ?`,
		string(merged), key); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return tx.Commit()
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	ok, err := b.DeleteIfExists(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	return nil
}

func (b *Backend) DeleteIfExists(ctx context.Context, key string) (bool, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (b *Backend) Scan(ctx context.Context, prefix string) iter.Seq2[string, store.Doc] {
	return func(yield func(string, store.Doc) bool) {
		rows, err := b.db.QueryContext(ctx,
			`SELECT key, doc FROM records WHERE key LIKE ? || '%' ORDER BY key`, prefix)
		if err != nil {
			return
		}
		defer rows.Close()

		for rows.Next() {
			var k, raw string
			if err := rows.Scan(&k, &raw); err != nil {
				return
			}
			var d store.Doc
			if err := json.Unmarshal([]byte(raw), &d); err != nil {
				return
			}
			if !yield(k, d) {
				return
			}
		}
	}
}

func (b *Backend) Close() error { return b.db.Close() }
