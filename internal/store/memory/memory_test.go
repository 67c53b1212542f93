package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nostrwatch/relaymon/internal/store"
)

func TestCRUD(t *testing.T) {
	ctx := context.Background()
	b := New()
	defer b.Close()

	require.ErrorIs(t, func() error { _, err := b.Get(ctx, "k1"); return err }(), store.ErrNotFound)

	require.NoError(t, b.Insert(ctx, "k1", store.Doc{"url": "wss://a", "online": true}))
	require.ErrorIs(t, b.Insert(ctx, "k1", store.Doc{"url": "wss://a"}), store.ErrExists)

	doc, err := b.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, "wss://a", doc["url"])

	require.NoError(t, b.Update(ctx, "k1", store.Doc{"url": "wss://a", "online": false}))
	require.ErrorIs(t, b.Update(ctx, "missing", store.Doc{}), store.ErrNotFound)

	require.NoError(t, b.Delete(ctx, "k1"))
	require.ErrorIs(t, b.Delete(ctx, "k1"), store.ErrNotFound)

	ok, err := b.DeleteIfExists(ctx, "k1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetMeta(t *testing.T) {
	ctx := context.Background()
	b := New()

	require.NoError(t, b.Insert(ctx, "k1", store.Doc{"url": "wss://a", "online": true}))

	v, err := b.GetMeta(ctx, "k1", "online")
	require.NoError(t, err)
	require.Equal(t, true, v)

	v, err = b.GetMeta(ctx, "k1", "absent")
	require.NoError(t, err)
	require.Nil(t, v)

	_, err = b.GetMeta(ctx, "nope", "online")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPatchShallowMerge(t *testing.T) {
	ctx := context.Background()
	b := New()

	require.NoError(t, b.Insert(ctx, "k1", store.Doc{
		"url":  "wss://a",
		"info": map[string]any{"name": "A"},
	}))
	require.NoError(t, b.Patch(ctx, "k1", store.Doc{
		"online": true,
		"info":   map[string]any{"software": "x"},
	}))

	doc, err := b.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, "wss://a", doc["url"])
	require.Equal(t, true, doc["online"])
	// top-level replace, not deep merge
	require.Equal(t, map[string]any{"software": "x"}, doc["info"])

	require.ErrorIs(t, b.Patch(ctx, "missing", store.Doc{"x": 1}), store.ErrNotFound)
}

func TestGetOnlinePreservesInputOrder(t *testing.T) {
	ctx := context.Background()
	b := New()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, b.Insert(ctx, k, store.Doc{"k": k}))
	}

	got, err := b.GetOnline(ctx, []string{"c", "missing", "a"})
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a"}, got)
}

func TestScanPrefixOrdered(t *testing.T) {
	ctx := context.Background()
	b := New()

	require.NoError(t, b.Insert(ctx, "Relay@b", store.Doc{"url": "b"}))
	require.NoError(t, b.Insert(ctx, "Relay@a", store.Doc{"url": "a"}))
	require.NoError(t, b.Insert(ctx, "Other@x", store.Doc{"url": "x"}))

	var keys []string
	for k, doc := range b.Scan(ctx, "Relay@") {
		keys = append(keys, k)
		require.NotNil(t, doc)
	}
	require.Equal(t, []string{"Relay@a", "Relay@b"}, keys)
}

func TestIsolationFromCallerMutation(t *testing.T) {
	ctx := context.Background()
	b := New()

	in := store.Doc{"url": "wss://a"}
	require.NoError(t, b.Insert(ctx, "k1", in))
	in["url"] = "mutated"

	out, err := b.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, "wss://a", out["url"])

	out["url"] = "mutated again"
	again, err := b.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, "wss://a", again["url"])
}
