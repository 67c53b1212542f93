package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nostrwatch/relaymon/internal/store"
)

func openTest(t *testing.T) *Backend {
	t.Helper()
	b, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestCRUD(t *testing.T) {
	ctx := context.Background()
	b := openTest(t)

	_, err := b.Get(ctx, "k1")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, b.Insert(ctx, "k1", store.Doc{"url": "wss://a", "attempts": float64(3)}))
	require.ErrorIs(t, b.Insert(ctx, "k1", store.Doc{"url": "wss://a"}), store.ErrExists)

	doc, err := b.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, "wss://a", doc["url"])
	// json round trip: numbers come back as float64
	require.Equal(t, float64(3), doc["attempts"])

	require.NoError(t, b.Update(ctx, "k1", store.Doc{"url": "wss://a", "online": true}))
	require.ErrorIs(t, b.Update(ctx, "missing", store.Doc{}), store.ErrNotFound)

	require.NoError(t, b.Delete(ctx, "k1"))
	require.ErrorIs(t, b.Delete(ctx, "k1"), store.ErrNotFound)
}

func TestPatchTopLevelOnly(t *testing.T) {
	ctx := context.Background()
	b := openTest(t)

	require.NoError(t, b.Insert(ctx, "k1", store.Doc{
		"url":  "wss://a",
		"info": map[string]any{"name": "A", "software": "old"},
	}))
	require.NoError(t, b.Patch(ctx, "k1", store.Doc{
		"online": true,
		"info":   map[string]any{"software": "new"},
	}))

	doc, err := b.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, true, doc["online"])
	require.Equal(t, map[string]any{"software": "new"}, doc["info"])

	require.ErrorIs(t, b.Patch(ctx, "missing", store.Doc{"x": 1}), store.ErrNotFound)
}

func TestGetMetaAndGetOnline(t *testing.T) {
	ctx := context.Background()
	b := openTest(t)

	require.NoError(t, b.Insert(ctx, "ka", store.Doc{"online": true}))
	require.NoError(t, b.Insert(ctx, "kb", store.Doc{"online": false}))

	v, err := b.GetMeta(ctx, "ka", "online")
	require.NoError(t, err)
	require.Equal(t, true, v)

	v, err = b.GetMeta(ctx, "ka", "missing_field")
	require.NoError(t, err)
	require.Nil(t, v)

	_, err = b.GetMeta(ctx, "missing", "online")
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := b.GetOnline(ctx, []string{"kb", "nope", "ka"})
	require.NoError(t, err)
	require.Equal(t, []string{"kb", "ka"}, got)
}

func TestScanSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	b, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, b.Insert(ctx, "Relay@1", store.Doc{"url": "a"}))
	require.NoError(t, b.Insert(ctx, "Relay@2", store.Doc{"url": "b"}))
	require.NoError(t, b.Close())

	b, err = Open(ctx, path)
	require.NoError(t, err)
	defer b.Close()

	var keys []string
	for k := range b.Scan(ctx, "Relay@") {
		keys = append(keys, k)
	}
	require.Equal(t, []string{"Relay@1", "Relay@2"}, keys)
}
