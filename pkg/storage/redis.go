package storage

import (
	"context"
	"errors"
	"time"
)

// RedisClient defines the Redis operations used by RedisStore.
// This interface is satisfied by a thin wrapper around
// github.com/redis/go-redis/v9.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) RedisStatusCmd
	Get(ctx context.Context, key string) RedisStringCmd
	Del(ctx context.Context, keys ...string) RedisIntCmd
}

// RedisStatusCmd represents a Redis status command result.
type RedisStatusCmd interface {
	Err() error
}

// RedisStringCmd represents a Redis string command result.
type RedisStringCmd interface {
	Bytes() ([]byte, error)
	Err() error
}

// RedisIntCmd represents a Redis int command result.
type RedisIntCmd interface {
	Err() error
}

// ErrRedisNil is returned when a key doesn't exist in Redis.
// This should match redis.Nil from go-redis.
var ErrRedisNil = errors.New("redis: nil")

// RedisStore keeps each key as a Redis string.
type RedisStore struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

// RedisOption configures RedisStore behavior.
type RedisOption func(*RedisStore)

// WithRedisPrefix sets the key prefix. Default: "fusion:".
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *RedisStore) {
		r.prefix = prefix
	}
}

// WithRedisTTL sets an expiration on every write. Default: none.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *RedisStore) {
		r.ttl = ttl
	}
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client RedisClient, opts ...RedisOption) *RedisStore {
	r := &RedisStore{
		client: client,
		prefix: "fusion:",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRedis returns an Adapter backed by Redis.
func NewRedis(client RedisClient, opts ...RedisOption) *Async {
	return NewAsync(NewRedisStore(client, opts...))
}

func (r *RedisStore) key(k string) string {
	return r.prefix + k
}

// Get retrieves the value for k.
func (r *RedisStore) Get(ctx context.Context, k string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.key(k)).Bytes()
	if err != nil {
		if errors.Is(err, ErrRedisNil) || err.Error() == ErrRedisNil.Error() {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Put stores data for k.
func (r *RedisStore) Put(ctx context.Context, k string, data []byte) error {
	return r.client.Set(ctx, r.key(k), data, r.ttl).Err()
}

// Delete removes k.
func (r *RedisStore) Delete(ctx context.Context, k string) error {
	return r.client.Del(ctx, r.key(k)).Err()
}

// Prefix returns the current key prefix.
func (r *RedisStore) Prefix() string {
	return r.prefix
}
