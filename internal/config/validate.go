package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/penwyp/go-metrobus/internal/core/model"
)

// Validate fills empty values with defaults and rejects invalid settings.
func (c *Config) Validate() error {
	def := defaultConfig()

	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = def.API.BaseURL
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = def.API.Timeout
	}
	if c.API.BreakerFailures == 0 {
		c.API.BreakerFailures = def.API.BreakerFailures
	}
	if c.API.BreakerTimeout <= 0 {
		c.API.BreakerTimeout = def.API.BreakerTimeout
	}

	switch c.Store.Driver {
	case "":
		c.Store.Driver = def.Store.Driver
	case StoreDriverFile, StoreDriverPostgres:
	default:
		return fmt.Errorf("unknown store.driver %q (want %s or %s)", c.Store.Driver, StoreDriverPostgres, StoreDriverFile)
	}
	if c.Store.Driver == StoreDriverPostgres && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for the %s driver", StoreDriverPostgres)
	}
	if c.Store.Dir == "" {
		c.Store.Dir = def.Store.Dir
	}
	if c.Store.WriteTimeout <= 0 {
		c.Store.WriteTimeout = def.Store.WriteTimeout
	}

	switch c.Cache.Driver {
	case "":
		c.Cache.Driver = def.Cache.Driver
	case CacheDriverMemory, CacheDriverFile, CacheDriverRedis:
	default:
		return fmt.Errorf("unknown cache.driver %q", c.Cache.Driver)
	}
	if c.Cache.Driver == CacheDriverRedis && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required for the %s driver", CacheDriverRedis)
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = def.Cache.Dir
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = def.Cache.TTL
	}

	if c.Refresh.Debounce < 0 {
		return fmt.Errorf("refresh.debounce must not be negative")
	}
	if c.Refresh.Debounce == 0 {
		c.Refresh.Debounce = def.Refresh.Debounce
	}
	if c.Refresh.MinInterval < 0 {
		return fmt.Errorf("refresh.min_interval must not be negative")
	}

	if c.Display.Timezone == "" {
		c.Display.Timezone = def.Display.Timezone
	}
	line, ok := model.ParseLineCode(c.Display.Line)
	if !ok {
		return fmt.Errorf("unknown display.line %q", c.Display.Line)
	}
	if line == "" {
		line = model.DefaultLine
	}
	c.Display.Line = string(line)

	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	return nil
}

// SelectedLine returns the configured line as a LineCode.
func (c *Config) SelectedLine() model.LineCode {
	line, _ := model.ParseLineCode(c.Display.Line)
	if line == "" {
		return model.DefaultLine
	}
	return line
}
