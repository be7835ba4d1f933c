package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshLock_SingleOwner(t *testing.T) {
	mr, client, _ := setupRedis(t)
	ctx := context.Background()

	first := NewRefreshLock(client, time.Minute)
	second := NewRefreshLock(client, time.Minute)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// чужая блокировка не снимается
	require.NoError(t, second.Release(ctx))
	assert.True(t, mr.Exists("lock:embeddings-refresh"))

	require.NoError(t, first.Release(ctx))
	assert.False(t, mr.Exists("lock:embeddings-refresh"))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRefreshLock_ExpiresByTTL(t *testing.T) {
	mr, client, _ := setupRedis(t)
	ctx := context.Background()

	first := NewRefreshLock(client, time.Minute)
	second := NewRefreshLock(client, time.Minute)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}
