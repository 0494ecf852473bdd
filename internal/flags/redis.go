package flags

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the hints with Redis. Entries expire so abandoned
// onboarding attempts do not pin a client to a stale hint forever.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the Redis instance at url (redis:// form) and
// verifies the connection with a ping.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (r *RedisStore) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, redisKey(clientID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get flag %s: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisStore) Set(ctx context.Context, clientID, key, value string) error {
	if err := r.client.Set(ctx, redisKey(clientID, key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("set flag %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, clientID, key string) error {
	if err := r.client.Del(ctx, redisKey(clientID, key)).Err(); err != nil {
		return fmt.Errorf("delete flag %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func redisKey(clientID, key string) string {
	return "flags:" + clientID + ":" + key
}
