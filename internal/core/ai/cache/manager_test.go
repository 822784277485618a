package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheManager_GetSet(t *testing.T) {
	m := NewManager(config.CacheConfig{MaxSize: 10, TTL: time.Minute})
	defer m.Close()
	ctx := context.Background()

	_, err := m.Get(ctx, "k")
	assert.True(t, errors.Is(err, common.ErrCacheMiss))

	require.NoError(t, m.Set(ctx, "k", "v"))
	val, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(1), stats["misses"])
}

func TestCacheManager_Expiry(t *testing.T) {
	m := NewManager(config.CacheConfig{MaxSize: 10, TTL: time.Millisecond})
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v"))
	time.Sleep(5 * time.Millisecond)
	_, err := m.Get(ctx, "k")
	assert.True(t, errors.Is(err, common.ErrCacheMiss))
}

func TestCacheManager_EvictsLeastUsed(t *testing.T) {
	m := NewManager(config.CacheConfig{MaxSize: 2, TTL: time.Minute})
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", "1"))
	require.NoError(t, m.Set(ctx, "b", "2"))
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "c", "3"))
	_, err = m.Get(ctx, "b")
	assert.True(t, errors.Is(err, common.ErrCacheMiss))
	_, err = m.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestNew(t *testing.T) {
	store, err := New(config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = New(config.CacheConfig{Enabled: true, Type: "memory", MaxSize: 1, TTL: time.Second})
	require.NoError(t, err)
	assert.IsType(t, &CacheManager{}, store)
	require.NoError(t, store.Close())

	_, err = New(config.CacheConfig{Enabled: true, Type: "disk"})
	assert.Error(t, err)
}
