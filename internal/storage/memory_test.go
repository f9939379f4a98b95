package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Roundtrip(t *testing.T) {
	ctx := context.Background()
	var store Store = NewMemoryStore()

	require.NoError(t, store.Put(ctx, "a", "1"))
	time.Sleep(time.Millisecond)
	require.NoError(t, store.Put(ctx, "b", "2"))

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, keys)

	v, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	require.NoError(t, store.Delete(ctx, "a"))
	require.NoError(t, store.Delete(ctx, "missing"))
	_, ok, _ = store.Get(ctx, "a")
	assert.False(t, ok)
	assert.NoError(t, store.Close())
}
