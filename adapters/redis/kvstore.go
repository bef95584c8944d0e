// Package redis provides a Redis-backed store implementation for
// distributed deployments where multiple instances share state.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Fruitloop24/metergate/ports"
	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// KVStore is a Redis implementation of ports.KVStore. Expiry is
// handled natively by Redis, and Increment uses INCR so rate-limit
// buckets get a genuinely atomic counter.
type KVStore struct {
	client *redis.Client
}

// NewKVStore creates a Redis-backed store and verifies connectivity.
func NewKVStore(cfg Config) (*KVStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &KVStore{client: client}, nil
}

// NewKVStoreWithClient creates a store with an existing client.
// Useful for testing or when sharing a client across components.
func NewKVStoreWithClient(client *redis.Client) *KVStore {
	return &KVStore{client: client}
}

// Get retrieves the value for a key.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ports.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %q: %w", key, err)
	}
	return val, nil
}

// Put stores a value. A zero ttl means the key never expires.
func (s *KVStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Increment atomically increments the integer at key using INCR.
// The expiry is set only when the increment creates the key, so a
// bucket's lifetime is anchored to its first request.
func (s *KVStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	if ttl > 0 {
		pipe.ExpireNX(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr %q: %w", key, err)
	}
	return incr.Val(), nil
}

// Close releases the underlying client.
func (s *KVStore) Close() error {
	return s.client.Close()
}

// Ensure interface compliance.
var (
	_ ports.KVStore      = (*KVStore)(nil)
	_ ports.CounterStore = (*KVStore)(nil)
)
