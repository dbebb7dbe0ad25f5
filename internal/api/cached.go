package api

import (
	"context"
	"time"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/data/cache"
	"github.com/penwyp/go-metrobus/internal/util"
)

// CachedClient serves the line catalogue and stop lists from a cache and
// passes every other call through.
type CachedClient struct {
	*Client
	cache cache.Cache
	ttl   time.Duration
}

func NewCachedClient(client *Client, c cache.Cache, ttl time.Duration) *CachedClient {
	return &CachedClient{Client: client, cache: c, ttl: ttl}
}

func (c *CachedClient) Lines(ctx context.Context) ([]model.LineInfo, error) {
	var lines []model.LineInfo
	if c.lookup(ctx, "lines", &lines) {
		return lines, nil
	}
	lines, err := c.Client.Lines(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, "lines", lines)
	return lines, nil
}

func (c *CachedClient) Line(ctx context.Context, code model.LineCode) (*model.LineInfo, error) {
	key := "line:" + string(code)
	var info model.LineInfo
	if c.lookup(ctx, key, &info) {
		return &info, nil
	}
	fetched, err := c.Client.Line(ctx, code)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, fetched)
	return fetched, nil
}

func (c *CachedClient) Stops(ctx context.Context, line model.LineCode) (*model.StopsResponse, error) {
	key := "stops:" + string(line)
	if line == "" {
		key = "stops:all"
	}
	var stops model.StopsResponse
	if c.lookup(ctx, key, &stops) {
		return &stops, nil
	}
	fetched, err := c.Client.Stops(ctx, line)
	if err != nil {
		return fetched, err
	}
	c.store(ctx, key, fetched)
	return fetched, nil
}

func (c *CachedClient) lookup(ctx context.Context, key string, out interface{}) bool {
	data, ok := c.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		util.LogDebugf("Discarding undecodable cache entry %s: %v", key, err)
		_ = c.cache.Delete(ctx, key)
		return false
	}
	util.LogDebugf("Cache hit for %s", key)
	return true
}

func (c *CachedClient) store(ctx context.Context, key string, value interface{}) {
	data, err := sonic.Marshal(value)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		util.LogWarnf("Failed to cache %s: %v", key, err)
	}
}
