package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedKV(t *testing.T) {
	kv, err := NewCachedKV(NewMemoryKV(), 4)
	require.NoError(t, err)
	exerciseKeyValue(t, kv)
}

func TestCachedKVServesFromCache(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryKV()
	kv, err := NewCachedKV(backend, 4)
	require.NoError(t, err)

	require.NoError(t, kv.Set(ctx, "users", `[1]`))
	// Change the backend behind the cache's back: the cached value wins.
	require.NoError(t, backend.Set(ctx, "users", `[2]`))

	v, ok, err := kv.Get(ctx, "users")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[1]`, v)

	require.NoError(t, kv.Remove(ctx, "users"))
	_, ok, err = backend.Get(ctx, "users")
	require.NoError(t, err)
	assert.False(t, ok)

	stats := kv.GetStats()
	assert.Equal(t, 4, stats["cache_capacity"])
	assert.Equal(t, false, stats["durable"])
}

func TestCachedKVFillsOnMiss(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryKV()
	require.NoError(t, backend.Set(ctx, "notes", `[]`))

	kv, err := NewCachedKV(backend, 0)
	require.NoError(t, err)

	v, ok, err := kv.Get(ctx, "notes")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[]`, v)
	assert.Equal(t, 1, kv.GetStats()["cached_slots"])
}
