// Package config defines process configuration and its loading layers.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/calcutta/internal/domain/pot"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration. Keys are flat so every field maps
// to a single CALCUTTA_* variable.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Store selects the repository backend: memory or postgres.
	Store            string `koanf:"store"`
	PostgresDSN      string `koanf:"postgres_dsn"`
	PostgresMaxConns int    `koanf:"postgres_max_conns"`
	// Migrate applies embedded schema migrations on startup.
	Migrate bool `koanf:"migrate"`

	// RedisAddr enables the distributed auction lock when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// SeasonFile is an optional TOML season topology; empty uses the default.
	SeasonFile string `koanf:"season_file"`
	// ReferenceYears drive the pot average.
	ReferenceYears []int `koanf:"reference_years"`

	// QueueSize bounds pending rank rebuilds.
	QueueSize int           `koanf:"queue_size"`
	LockTTL   time.Duration `koanf:"lock_ttl"`
	LockWait  time.Duration `koanf:"lock_wait"`
}

// New creates a Config with defaults. The context is unused and kept for
// call-site symmetry with Load.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		ReadTimeout:      10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ShutdownTimeout:  30 * time.Second,
		Store:            StoreMemory,
		PostgresMaxConns: 8,
		Migrate:          true,
		ReferenceYears:   append([]int(nil), pot.DefaultReferenceYears...),
		QueueSize:        1,
		LockTTL:          10 * time.Second,
		LockWait:         2 * time.Second,
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.ShutdownTimeout <= 0:
		return fmt.Errorf("%w: http timeouts must be positive", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be at least 1", ErrInvalidConfig)
	case c.LockTTL <= 0 || c.LockWait <= 0:
		return fmt.Errorf("%w: lock_ttl and lock_wait must be positive", ErrInvalidConfig)
	case len(c.ReferenceYears) == 0:
		return fmt.Errorf("%w: reference_years must not be empty", ErrInvalidConfig)
	}

	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres store needs postgres_dsn", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownStore, c.Store)
	}
	return nil
}
