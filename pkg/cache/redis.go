package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores entries as JSON values in one Redis hash.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// RedisConfig configures a RedisBackend.
type RedisConfig struct {
	Prefix string
}

// NewRedisBackend creates a Redis-backed store on an existing client.
func NewRedisBackend(client *redis.Client, config RedisConfig) *RedisBackend {
	return &RedisBackend{
		client: client,
		prefix: config.Prefix,
	}
}

// hashKey is the Redis key of the hash holding every entry.
func (b *RedisBackend) hashKey() string {
	if b.prefix == "" {
		return "answer_cache"
	}
	return b.prefix + ":answer_cache"
}

// Name implements Backend.
func (b *RedisBackend) Name() string {
	return "redis"
}

// LoadAll implements Backend.
func (b *RedisBackend) LoadAll(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	values, err := b.client.HGetAll(ctx, b.hashKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	entries := make([]Entry, 0, len(values))
	for id, raw := range values {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", id, err)
		}
		e.ID = id
		entries = append(entries, e)
	}
	return entries, nil
}

// Upsert implements Backend.
func (b *RedisBackend) Upsert(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	if err := b.client.HSet(ctx, b.hashKey(), e.ID, raw).Err(); err != nil {
		return fmt.Errorf("redis hset failed: %w", err)
	}
	return nil
}

// Delete implements Backend.
func (b *RedisBackend) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if err := b.client.HDel(ctx, b.hashKey(), ids...).Err(); err != nil {
		return fmt.Errorf("redis hdel failed: %w", err)
	}
	return nil
}

// Ping checks if the Redis connection is healthy.
func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	return b.client.Ping(ctx).Err()
}

// Close implements Backend.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
