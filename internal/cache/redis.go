package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// redisBackend implements Backend using Redis. Entries never expire; the session
// is removed only by an explicit logout.
type redisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisClient creates a Redis client for the session backend
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisBackend creates a Redis-backed Backend. Every key is stored under prefix.
func NewRedisBackend(client *redis.Client, prefix string) Backend {
	return &redisBackend{
		client: client,
		prefix: prefix,
	}
}

func (r *redisBackend) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return value, err
}

func (r *redisBackend) Set(ctx context.Context, key string, value string) error {
	return r.client.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *redisBackend) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}
