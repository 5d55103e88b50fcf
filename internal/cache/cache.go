// Package cache stores remote catalog responses that are identical for every
// session, such as remedial resources per concept.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StoreType selects a driver.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

var (
	// ErrInvalidStoreType is returned for an unknown driver name.
	ErrInvalidStoreType = errors.New("cache: invalid store type")
	// ErrInvalidConfig is returned when a driver is missing a required option.
	ErrInvalidConfig = errors.New("cache: invalid configuration")
)

const defaultTTL = time.Hour

// Store is a byte cache with per-entry expiry.
type Store interface {
	// Get returns nil, nil when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

type storeConfig struct {
	redisClient *redis.Client
	ttl         time.Duration
	prefix      string
}

// Option configures NewStore.
type Option func(*storeConfig)

// WithRedisClient sets the client used by the redis driver.
func WithRedisClient(client *redis.Client) Option {
	return func(c *storeConfig) { c.redisClient = client }
}

// WithTTL sets how long entries live.
func WithTTL(ttl time.Duration) Option {
	return func(c *storeConfig) { c.ttl = ttl }
}

// WithKeyPrefix namespaces redis keys.
func WithKeyPrefix(prefix string) Option {
	return func(c *storeConfig) { c.prefix = prefix }
}

// NewStore creates a Store of the given type.
func NewStore(storeType StoreType, opts ...Option) (Store, error) {
	cfg := &storeConfig{ttl: defaultTTL, prefix: "eeebee:"}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ttl <= 0 {
		cfg.ttl = defaultTTL
	}

	switch storeType {
	case StoreTypeMemory:
		return newMemoryStore(cfg.ttl), nil
	case StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return &redisStore{client: cfg.redisClient, ttl: cfg.ttl, prefix: cfg.prefix}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStoreType, storeType)
	}
}

// Open picks the redis driver when redisURL is set and the memory driver
// otherwise.
func Open(ctx context.Context, redisURL string, ttl time.Duration) (Store, error) {
	if redisURL == "" {
		return NewStore(StoreTypeMemory, WithTTL(ttl))
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewStore(StoreTypeRedis, WithRedisClient(client), WithTTL(ttl))
}
