// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and STATBOARD_ environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"time"

	"github.com/okian/statboard/internal/domain/query"
)

// Store kinds.
const (
	StoreDynamoDB = "dynamodb"
	StoreMemory   = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the storage backend: dynamodb or memory.
	Store string `koanf:"store"`

	// TableName is the DynamoDB table holding stats.
	TableName string `koanf:"table_name"`

	// Region and Profile select the AWS region and shared credentials profile.
	Region  string `koanf:"region"`
	Profile string `koanf:"profile"`

	// Endpoint overrides the DynamoDB endpoint, e.g. http://localhost:8000
	// for DynamoDB Local.
	Endpoint string `koanf:"endpoint"`

	// CreateTable creates the table and its indexes at startup when missing.
	CreateTable bool `koanf:"create_table"`

	// MaxQueryCount caps GET /stats?count.
	MaxQueryCount int `koanf:"max_query_count"`

	// StorageTimeoutMS bounds each storage call; 0 disables the bound.
	StorageTimeoutMS int `koanf:"storage_timeout_ms"`

	// CacheSize and CacheTTLMS configure the query cache; size 0 disables it.
	CacheSize  int `koanf:"cache_size"`
	CacheTTLMS int `koanf:"cache_ttl_ms"`

	// ShutdownTimeoutMS bounds graceful HTTP shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		Store:             StoreDynamoDB,
		TableName:         "StatsDB",
		Region:            "us-west-2",
		Profile:           "stats-db",
		MaxQueryCount:     query.MaxCount,
		StorageTimeoutMS:  5_000,
		CacheSize:         0,
		CacheTTLMS:        1_000,
		ShutdownTimeoutMS: 10_000,
	}
}

// StorageTimeout returns StorageTimeoutMS as a duration.
func (c *Config) StorageTimeout() time.Duration {
	return time.Duration(c.StorageTimeoutMS) * time.Millisecond
}

// CacheTTL returns CacheTTLMS as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMS) * time.Millisecond
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Store != StoreDynamoDB && c.Store != StoreMemory:
		return fmt.Errorf("%w: store must be %q or %q, got %q", ErrInvalidConfig, StoreDynamoDB, StoreMemory, c.Store)
	case c.TableName == "":
		return fmt.Errorf("%w: table_name must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.MaxQueryCount < 1 || c.MaxQueryCount > query.MaxCount:
		return fmt.Errorf("%w: max_query_count must be within [1, %d], got %d", ErrInvalidConfig, query.MaxCount, c.MaxQueryCount)
	case c.StorageTimeoutMS < 0:
		return fmt.Errorf("%w: storage_timeout_ms must not be negative", ErrInvalidConfig)
	case c.CacheSize < 0:
		return fmt.Errorf("%w: cache_size must not be negative", ErrInvalidConfig)
	case c.CacheSize > 0 && c.CacheTTLMS <= 0:
		return fmt.Errorf("%w: cache_ttl_ms must be positive when the cache is enabled", ErrInvalidConfig)
	case c.ShutdownTimeoutMS <= 0:
		return fmt.Errorf("%w: shutdown_timeout_ms must be positive", ErrInvalidConfig)
	}
	return nil
}
