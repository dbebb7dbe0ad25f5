// Package cache stores small, slowly changing API responses such as the
// line catalogue and stop lists.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value and true when key exists and has not expired.
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver    string
	RedisAddr string
	Dir       string
}

// New builds the backend named by opts.Driver: memory, file or redis.
func New(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Driver {
	case "", "memory":
		return NewMemoryCache(), nil
	case "file":
		return NewFileCache(opts.Dir)
	case "redis":
		return NewRedisCache(ctx, opts.RedisAddr)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", opts.Driver)
	}
}
