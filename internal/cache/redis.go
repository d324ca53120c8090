package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"media-inspector/internal/analysis"
	"media-inspector/internal/logging"
)

// DefaultRedisKey is the key holding the cached record.
const DefaultRedisKey = "media-inspector:analysis:cache"

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisStore keeps the cached record under a single key. SET replaces the
// value atomically and no expiry is set.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     4,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	key := cfg.Key
	if key == "" {
		key = DefaultRedisKey
	}
	logging.Info("Redis analysis cache initialized at %s (key %s)", cfg.Addr, key)
	return &RedisStore{client: client, key: key}, nil
}

// Backend implements Store.
func (s *RedisStore) Backend() string {
	return BackendRedis
}

// Get implements analysis.CacheStore.
func (s *RedisStore) Get(ctx context.Context) (*analysis.CacheRecord, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		observe(BackendRedis, "get", "miss")
		return nil, nil
	}
	if err != nil {
		observe(BackendRedis, "get", "error")
		return nil, fmt.Errorf("failed to read analysis cache from redis: %w", err)
	}
	return decode(BackendRedis, data), nil
}

// Put implements analysis.CacheStore.
func (s *RedisStore) Put(ctx context.Context, record analysis.CacheRecord) (err error) {
	defer func() { observe(BackendRedis, "put", putResult(err)) }()

	data, err := encode(record)
	if err != nil {
		return err
	}
	if err = s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write analysis cache to redis: %w", err)
	}
	return nil
}

// Clear deletes the cache key.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
