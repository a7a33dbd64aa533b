// Murmur Discovery - Audio Clip Feed Ranking
// Copyright 2026 Murmur Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates the discovery service configuration.
//
// Configuration is layered with Koanf v2: built-in defaults, then an
// optional YAML file, then environment variables (highest priority).
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the discovery service.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Logging  LoggingConfig  `koanf:"logging"`
	Velocity VelocityConfig `koanf:"velocity"`
	Feed     FeedConfig     `koanf:"feed"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the listen address.
	Host string `koanf:"host" validate:"required"`

	// Port is the listen port.
	Port int `koanf:"port" validate:"gte=1,lte=65535"`

	// Timeout is the per-request read/write timeout.
	Timeout time.Duration `koanf:"timeout"`

	// CORSOrigins lists allowed CORS origins.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs is the per-IP request budget per RateLimitWindow.
	RateLimitReqs int `koanf:"rate_limit_reqs" validate:"gte=1"`

	// RateLimitWindow is the rate limit window duration.
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file path. ":memory:" opens an in-memory store.
	Path string `koanf:"path" validate:"required"`

	// MaxMemory is the DuckDB memory limit (e.g. "1GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 uses runtime.NumCPU().
	Threads int `koanf:"threads" validate:"gte=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`

	// Format is json or console.
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file/line in log output.
	Caller bool `koanf:"caller"`
}

// VelocityConfig holds engagement-velocity tracker settings.
type VelocityConfig struct {
	// MaxAgeHours bounds which clips a scheduled refresh touches.
	MaxAgeHours int `koanf:"max_age_hours" validate:"gte=1"`

	// BatchLimit caps clips refreshed per run.
	BatchLimit int `koanf:"batch_limit" validate:"gte=1"`

	// RetentionDays is how long velocity samples are kept.
	RetentionDays int `koanf:"retention_days" validate:"gte=1"`

	// WindowHours is the default velocity read window.
	WindowHours int `koanf:"window_hours" validate:"gte=1"`

	// RefreshPerSecond paces per-clip refresh writes within a run.
	// 0 disables pacing.
	RefreshPerSecond float64 `koanf:"refresh_per_second" validate:"gte=0"`

	// ScheduleEnabled runs the built-in cron schedule. Disable when an
	// external scheduler drives POST /api/v1/velocity/refresh.
	ScheduleEnabled bool `koanf:"schedule_enabled"`

	// Schedule is the cron expression for the built-in schedule.
	Schedule string `koanf:"schedule"`
}

// FeedConfig holds feed assembler settings.
type FeedConfig struct {
	// DefaultLimit is the page size when the caller omits one.
	DefaultLimit int `koanf:"default_limit" validate:"gte=1"`

	// MaxLimit caps the page size a caller may request.
	MaxLimit int `koanf:"max_limit" validate:"gte=1"`

	// OverfetchFactor multiplies the page window fetched from the store
	// so post-filter exclusions don't force a second round-trip.
	OverfetchFactor int `koanf:"overfetch_factor" validate:"gte=1"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8642,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		Database: DatabaseConfig{
			Path:      "/data/discovery.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Velocity: VelocityConfig{
			MaxAgeHours:      48,
			BatchLimit:       1000,
			RetentionDays:    7,
			WindowHours:      24,
			RefreshPerSecond: 50,
			ScheduleEnabled:  true,
			Schedule:         "@hourly",
		},
		Feed: FeedConfig{
			DefaultLimit:    20,
			MaxLimit:        100,
			OverfetchFactor: 3,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Feed.DefaultLimit > c.Feed.MaxLimit {
		return fmt.Errorf("feed.default_limit (%d) exceeds feed.max_limit (%d)",
			c.Feed.DefaultLimit, c.Feed.MaxLimit)
	}

	return nil
}
