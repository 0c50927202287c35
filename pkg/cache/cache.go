// Package cache wraps the Redis client used for short-lived derived data.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pillflow/pillflow-backend/pkg/config"
)

// ErrCacheMiss is returned by Get when the key does not exist
var ErrCacheMiss = errors.New("cache miss")

// KVStore is the key-value surface the services depend on
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

// NewClient creates a Redis client from configuration
func NewClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisKVStore implements KVStore on go-redis
type RedisKVStore struct {
	client *redis.Client
}

// NewRedisKVStore creates a KVStore backed by client
func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKVStore) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

// Health reports the cache status in the shape of the other health checks
func (r *RedisKVStore) Health(ctx context.Context) map[string]string {
	status := map[string]string{"status": "healthy"}
	if err := r.client.Ping(ctx).Err(); err != nil {
		status["status"] = "unhealthy"
		status["error"] = err.Error()
	}
	return status
}

// Close closes the underlying client
func (r *RedisKVStore) Close() error {
	return r.client.Close()
}
