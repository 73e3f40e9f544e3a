package gate

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const anonCounterPrefix = "nutrascan:anon:"

// RedisCounter is a Counter backed by a shared Redis instance so anonymous
// quota survives restarts and is consistent across replicas. Keys expire
// after the configured TTL to keep the keyspace bounded.
type RedisCounter struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewRedisCounter(client *goredis.Client, ttl time.Duration) *RedisCounter {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisCounter{client: client, ttl: ttl}
}

func (c *RedisCounter) Get(ctx context.Context, key string) (int, error) {
	if c.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	count, err := c.client.Get(ctx, anonCounterPrefix+key).Int()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get anon counter: %w", err)
	}
	return count, nil
}

func (c *RedisCounter) Increment(ctx context.Context, key string) (int, error) {
	if c.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	count, err := c.client.Incr(ctx, anonCounterPrefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment anon counter: %w", err)
	}
	if count == 1 {
		if err := c.client.Expire(ctx, anonCounterPrefix+key, c.ttl).Err(); err != nil {
			return int(count), fmt.Errorf("set anon counter ttl: %w", err)
		}
	}
	return int(count), nil
}

var _ Counter = (*RedisCounter)(nil)
