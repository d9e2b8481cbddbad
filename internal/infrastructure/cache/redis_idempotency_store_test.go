package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appshared "github.com/erp/ledger/internal/application/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisIdempotencyStore(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisIdempotencyStore(client, "")
	ctx := context.Background()

	ok, err := store.Claim(ctx, "payment:doc:abc", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := mr.Get(DefaultIdempotencyPrefix + "payment:doc:abc")
	require.NoError(t, err)
	assert.Equal(t, appshared.IdempotencyPending, got)
	assert.Equal(t, time.Hour, mr.TTL(DefaultIdempotencyPrefix+"payment:doc:abc"))

	ok, err = store.Claim(ctx, "payment:doc:abc", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Resolve(ctx, "payment:doc:abc", "pay-1", 2*time.Hour))
	v, found, err := store.Lookup(ctx, "payment:doc:abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "pay-1", v)

	require.NoError(t, store.Release(ctx, "payment:doc:abc"))
	_, found, err = store.Lookup(ctx, "payment:doc:abc")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisIdempotencyStore_ExpiredClaimCanBeRetaken(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisIdempotencyStore(client, "test:")
	ctx := context.Background()

	ok, err := store.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = store.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisIdempotencyStore_ServerDown(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisIdempotencyStore(client, "")
	mr.Close()

	_, err := store.Claim(context.Background(), "k", time.Minute)
	assert.Error(t, err)
	_, _, err = store.Lookup(context.Background(), "k")
	assert.Error(t, err)
}

func TestFactory_Build(t *testing.T) {
	ctx := context.Background()

	t.Run("no host uses memory", func(t *testing.T) {
		store, client, closer, err := NewFactory(config.RedisConfig{}).Build(ctx)
		require.NoError(t, err)
		defer closer.Close()
		assert.Nil(t, client)
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("reachable redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.RedisConfig{Host: mr.Host(), Port: atoi(t, mr.Port())}
		store, client, closer, err := NewFactory(cfg).Build(ctx)
		require.NoError(t, err)
		defer closer.Close()
		assert.NotNil(t, client)
		assert.IsType(t, &RedisIdempotencyStore{}, store)
	})

	t.Run("unreachable redis falls back", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.RedisConfig{Host: mr.Host(), Port: atoi(t, mr.Port())}
		mr.Close()
		store, client, closer, err := NewFactory(cfg).Build(ctx)
		require.NoError(t, err)
		defer closer.Close()
		assert.Nil(t, client)
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("unreachable redis without fallback fails", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.RedisConfig{Host: mr.Host(), Port: atoi(t, mr.Port())}
		mr.Close()
		_, _, _, err := NewFactory(cfg, WithInMemoryFallback(false)).Build(ctx)
		assert.Error(t, err)
	})
}

func atoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
