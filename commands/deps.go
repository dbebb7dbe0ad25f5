package commands

import (
	"context"
	"fmt"

	"github.com/penwyp/go-metrobus/internal/api"
	"github.com/penwyp/go-metrobus/internal/config"
	"github.com/penwyp/go-metrobus/internal/data/cache"
	"github.com/penwyp/go-metrobus/internal/store"
	"github.com/penwyp/go-metrobus/internal/tracker"
	"github.com/penwyp/go-metrobus/internal/util"
)

// openStore connects to the configured analytics event log.
func openStore(ctx context.Context, c *config.Config) (store.EventStore, error) {
	switch c.Store.Driver {
	case config.StoreDriverPostgres:
		pg, err := store.NewPostgresStore(ctx, c.Store.DSN)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return pg, nil
	default:
		dir := expandPath(c.Store.Dir)
		if err := ensureDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create event directory: %w", err)
		}
		return store.NewFileStore(dir)
	}
}

// newAPIClient builds the REST client with the configured response cache.
// A cache that cannot be opened falls back to memory.
func newAPIClient(ctx context.Context, c *config.Config) (*api.CachedClient, func()) {
	client := api.NewClient(api.Options{
		BaseURL:         c.API.BaseURL,
		Timeout:         c.API.Timeout,
		BreakerFailures: c.API.BreakerFailures,
		BreakerTimeout:  c.API.BreakerTimeout,
	})

	backend, err := cache.New(ctx, cache.Options{
		Driver:    c.Cache.Driver,
		RedisAddr: c.Cache.RedisAddr,
		Dir:       expandPath(c.Cache.Dir),
	})
	if err != nil {
		util.LogWarnf("Cache %s unavailable, using memory: %v", c.Cache.Driver, err)
		backend = cache.NewMemoryCache()
	}
	return api.NewCachedClient(client, backend, c.Cache.TTL), func() { _ = backend.Close() }
}

// session bundles what the interactive commands share: the API client and
// an analytics tracker writing to the event log.
type session struct {
	api     *api.CachedClient
	tracker *tracker.Tracker
	close   func()
}

// openSession never fails on the event log: without it actions still work,
// they just go unrecorded.
func openSession(ctx context.Context, c *config.Config) *session {
	client, closeCache := newAPIClient(ctx, c)
	s := &session{api: client, close: closeCache}

	events, err := openStore(ctx, c)
	if err != nil {
		util.LogWarnf("Analytics disabled: %v", err)
		s.tracker = tracker.New(nil, c.Store.WriteTimeout)
		return s
	}
	s.tracker = tracker.New(events, c.Store.WriteTimeout)
	s.close = func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), c.Store.WriteTimeout)
		defer cancel()
		s.tracker.Flush(flushCtx)
		_ = events.Close()
		closeCache()
	}
	return s
}
