package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCacheRepository(client), mr
}

func TestCacheRevokeRefreshToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache, mr := newTestCache(t)

	revoked, err := cache.IsRefreshTokenRevoked(ctx, "fp-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, cache.RevokeRefreshToken(ctx, "fp-1", time.Hour))

	revoked, err = cache.IsRefreshTokenRevoked(ctx, "fp-1")
	require.NoError(t, err)
	require.True(t, revoked)
	require.True(t, mr.Exists("FAMILY_TASK:REVOKED_REFRESH_TOKEN:fp-1"))

	mr.FastForward(2 * time.Hour)

	revoked, err = cache.IsRefreshTokenRevoked(ctx, "fp-1")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestCacheRevokeRefreshTokenIgnoresElapsedTTL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache, mr := newTestCache(t)

	require.NoError(t, cache.RevokeRefreshToken(ctx, "fp-2", 0))
	require.False(t, mr.Exists("FAMILY_TASK:REVOKED_REFRESH_TOKEN:fp-2"))
}

func TestCacheRedisDown(t *testing.T) {
	t.Parallel()

	cache, mr := newTestCache(t)
	mr.Close()

	_, err := cache.IsRefreshTokenRevoked(context.Background(), "fp-3")
	require.Error(t, err)
}
