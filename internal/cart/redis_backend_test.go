package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestRedisBackend_RoundTrip(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	store := NewStore(NewRedisBackend(client, "shopper-1", time.Hour), zerolog.Nop())
	items := sampleItems()
	require.NoError(t, store.Save(ctx, items))

	assert.True(t, mr.Exists("cart:shopper-1"))
	assert.Equal(t, time.Hour, mr.TTL("cart:shopper-1"))
	assertSameItems(t, items, store.Load(ctx))
}

func TestRedisBackend_MissingKeyIsEmpty(t *testing.T) {
	client, _ := setupTestRedis(t)

	data, err := NewRedisBackend(client, "nobody", time.Hour).Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestRedisBackend_CorruptedValue(t *testing.T) {
	client, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:shopper-2", "{{{"))

	store := NewStore(NewRedisBackend(client, "shopper-2", time.Hour), zerolog.Nop())
	assert.Empty(t, store.Load(context.Background()))
}

func TestRedisBackend_ServerDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewStore(NewRedisBackend(client, "shopper-3", time.Hour), zerolog.Nop())
	mr.Close()

	ctx := context.Background()
	assert.Empty(t, store.Load(ctx))
	assert.ErrorIs(t, store.Save(ctx, sampleItems()), ErrPersist)
}

func TestRedisBackend_ExpiresAfterTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewStore(NewRedisBackend(client, "shopper-4", time.Minute), zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleItems()))

	mr.FastForward(2 * time.Minute)
	assert.Empty(t, store.Load(ctx))
}
