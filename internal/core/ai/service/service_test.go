package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"recipe-importer/internal/core/ai/cache"
	"recipe-importer/internal/core/ai/provider"
	"recipe-importer/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCompleter struct {
	calls int
	reply string
	err   error
}

func (c *countingCompleter) Complete(ctx context.Context, req *provider.Request) (string, error) {
	c.calls++
	return c.reply, c.err
}

func TestService_CachesSuccessfulCompletions(t *testing.T) {
	upstream := &countingCompleter{reply: `{"ok":true}`}
	store := cache.NewManager(config.CacheConfig{MaxSize: 10, TTL: time.Minute})
	defer store.Close()
	svc := NewService(upstream, store)

	req := &provider.Request{User: "same prompt"}
	for i := 0; i < 3; i++ {
		out, err := svc.Complete(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, `{"ok":true}`, out)
	}
	assert.Equal(t, 1, upstream.calls)

	_, err := svc.Complete(context.Background(), &provider.Request{User: "other prompt"})
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)
}

func TestService_DoesNotCacheErrors(t *testing.T) {
	upstream := &countingCompleter{err: errors.New("upstream down")}
	store := cache.NewManager(config.CacheConfig{MaxSize: 10, TTL: time.Minute})
	defer store.Close()
	svc := NewService(upstream, store)

	req := &provider.Request{User: "p"}
	_, err := svc.Complete(context.Background(), req)
	require.Error(t, err)
	_, err = svc.Complete(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, 2, upstream.calls)
}

func TestService_WithoutCache(t *testing.T) {
	upstream := &countingCompleter{reply: "x"}
	svc := NewService(upstream, nil)
	_, _ = svc.Complete(context.Background(), &provider.Request{User: "p"})
	_, _ = svc.Complete(context.Background(), &provider.Request{User: "p"})
	assert.Equal(t, 2, upstream.calls)
}
