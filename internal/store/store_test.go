package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nostrwatch/relaymon/internal/store"
	"github.com/nostrwatch/relaymon/internal/store/memory"
)

func TestExists(t *testing.T) {
	ctx := context.Background()
	b := memory.New()

	ok, err := store.Exists(ctx, b, "k1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, b.Insert(ctx, "k1", store.Doc{"url": "wss://a"}))

	ok, err = store.Exists(ctx, b, "k1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestInsertIfNotExists(t *testing.T) {
	ctx := context.Background()
	b := memory.New()

	inserted, err := store.InsertIfNotExists(ctx, b, "k1", store.Doc{"n": 1})
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = store.InsertIfNotExists(ctx, b, "k1", store.Doc{"n": 2})
	require.NoError(t, err)
	require.False(t, inserted)

	doc, err := b.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, 1, doc["n"])
}

func TestUpsert(t *testing.T) {
	ctx := context.Background()
	b := memory.New()

	require.NoError(t, store.Upsert(ctx, b, "k1", store.Doc{"n": 1}))
	require.NoError(t, store.Upsert(ctx, b, "k1", store.Doc{"n": 2}))

	doc, err := b.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, 2, doc["n"])
}
