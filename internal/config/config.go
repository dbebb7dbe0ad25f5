// Package config loads go-metrobus settings. Values are layered: built-in
// defaults, then an optional YAML file, then METROBUS_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/penwyp/go-metrobus/internal/core/model"
)

const (
	// EnvPrefix scopes the environment variables read by Load.
	EnvPrefix = "METROBUS_"
	// APIURLEnvVar is the well-known override for the REST base URL.
	APIURLEnvVar = "METROBUS_API_URL"

	DefaultBaseURL = "http://localhost:8000"

	StoreDriverPostgres = "postgres"
	StoreDriverFile     = "file"
	CacheDriverMemory   = "memory"
	CacheDriverFile     = "file"
	CacheDriverRedis    = "redis"
)

// Config is the full application configuration.
type Config struct {
	API     APIConfig     `koanf:"api"`
	Store   StoreConfig   `koanf:"store"`
	Cache   CacheConfig   `koanf:"cache"`
	Refresh RefreshConfig `koanf:"refresh"`
	Display DisplayConfig `koanf:"display"`
	Server  ServerConfig  `koanf:"server"`
	Log     LogConfig     `koanf:"log"`
}

type APIConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
	// BreakerFailures consecutive failures open the circuit for BreakerTimeout.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

type StoreConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
	Dir    string `koanf:"dir"`
	// WriteTimeout bounds a single analytics insert.
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type CacheConfig struct {
	Driver    string        `koanf:"driver"`
	RedisAddr string        `koanf:"redis_addr"`
	Dir       string        `koanf:"dir"`
	TTL       time.Duration `koanf:"ttl"`
}

type RefreshConfig struct {
	Debounce    time.Duration `koanf:"debounce"`
	MinInterval time.Duration `koanf:"min_interval"`
}

type DisplayConfig struct {
	Timezone string `koanf:"timezone"`
	Line     string `koanf:"line"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	File  string `koanf:"file"`
}

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// Path is an explicit config file; it must exist when set.
	Path string
	// DotEnv is loaded into the process environment first. Missing files are ignored.
	DotEnv string
}

// Dir returns ~/.go-metrobus.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".go-metrobus"
	}
	return filepath.Join(home, ".go-metrobus")
}

// DefaultPath is the config file used when none is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:         DefaultBaseURL,
			Timeout:         30 * time.Second,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Store: StoreConfig{
			Driver:       StoreDriverFile,
			Dir:          filepath.Join(Dir(), "events"),
			WriteTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Driver: CacheDriverMemory,
			Dir:    filepath.Join(Dir(), "cache"),
			TTL:    5 * time.Minute,
		},
		Refresh: RefreshConfig{
			Debounce:    time.Second,
			MinInterval: 2 * time.Second,
		},
		Display: DisplayConfig{
			Timezone: "Local",
			Line:     string(model.DefaultLine),
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(Dir(), "logs", "app.log"),
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// Load builds the configuration: defaults, then the YAML file, then env.
func Load(opts LoadOptions) (*Config, error) {
	dotenv := opts.DotEnv
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", dotenv, err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path, err := resolvePath(opts.Path)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func resolvePath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	if _, err := os.Stat(DefaultPath()); err == nil {
		return DefaultPath(), nil
	}
	return "", nil
}

// envTransformFunc maps METROBUS_SECTION__KEY to section.key.
//
//   - METROBUS_API_URL -> api.base_url
//   - METROBUS_STORE__DSN -> store.dsn
//   - METROBUS_REFRESH__MIN_INTERVAL -> refresh.min_interval
//
// Keys without a section separator are ignored.
func envTransformFunc(key string) string {
	if key == APIURLEnvVar {
		return "api.base_url"
	}
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if !strings.Contains(key, "__") {
		return ""
	}
	return strings.ReplaceAll(key, "__", ".")
}
