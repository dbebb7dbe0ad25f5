package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-metrobus/internal/util"
)

type fileEnvelope struct {
	Key     string    `json:"key"`
	Value   []byte    `json:"value"`
	Expires time.Time `json:"expires"`
}

// FileCache persists entries as JSON files under a directory and keeps a
// memory copy of everything it has read or written.
type FileCache struct {
	baseDir string
	memory  *MemoryCache
}

func NewFileCache(baseDir string) (*FileCache, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("file cache needs a directory")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{baseDir: baseDir, memory: NewMemoryCache()}, nil
}

func (c *FileCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.baseDir, hex.EncodeToString(sum[:8])+".json")
}

func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if value, ok := c.memory.Get(ctx, key); ok {
		return value, true
	}

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var env fileEnvelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		util.LogDebugf("Cache file for %s is corrupt: %v", key, err)
		return nil, false
	}
	if env.Key != key {
		return nil, false
	}

	now := c.memory.now()
	if !env.Expires.IsZero() && !now.Before(env.Expires) {
		_ = os.Remove(c.path(key))
		return nil, false
	}

	var ttl time.Duration
	if !env.Expires.IsZero() {
		ttl = env.Expires.Sub(now)
	}
	_ = c.memory.Set(ctx, key, env.Value, ttl)
	return env.Value, true
}

func (c *FileCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	env := fileEnvelope{Key: key, Value: value}
	if ttl > 0 {
		env.Expires = c.memory.now().Add(ttl)
	}
	data, err := sonic.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	// Write then rename so readers never see a partial file.
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := os.Rename(tmp, c.path(key)); err != nil {
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}
	return c.memory.Set(ctx, key, value, ttl)
}

func (c *FileCache) Delete(ctx context.Context, key string) error {
	_ = c.memory.Delete(ctx, key)
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *FileCache) Close() error {
	return nil
}
