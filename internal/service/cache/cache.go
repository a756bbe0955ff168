package cache

import (
	"context"
	"time"
)

// BytesCache is a minimal cache API storing raw bytes with TTL.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config selects the cache backend. An empty Redis address keeps entries in process.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Prefix        string
	MaxEntries    int
}

// New returns a Redis cache when an address is configured, else an in-memory TTL cache.
func New(cfg Config) BytesCache {
	if cfg.RedisAddr != "" {
		return NewRedisCache(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
		})
	}
	return NewTTLCache(WithMaxEntries(cfg.MaxEntries))
}
