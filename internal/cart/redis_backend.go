package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps the serialized cart in Redis under cart:<cartID>.
type RedisBackend struct {
	client *redis.Client
	cartID string
	ttl    time.Duration
}

func NewRedisBackend(client *redis.Client, cartID string, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, cartID: cartID, ttl: ttl}
}

func (b *RedisBackend) Read(ctx context.Context) (string, error) {
	data, err := b.client.Get(ctx, redisKey(b.cartID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

// Write stores the cart and refreshes its expiry.
func (b *RedisBackend) Write(ctx context.Context, data string) error {
	if err := b.client.Set(ctx, redisKey(b.cartID), data, b.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func redisKey(cartID string) string {
	return fmt.Sprintf("%s:%s", StorageKey, cartID)
}
