// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

// Package config loads Cascade configuration from defaults, an optional YAML
// file and environment variables (in that order of precedence, lowest first).
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Upstream UpstreamConfig `koanf:"upstream"`
	API      APIConfig      `koanf:"api"`
	Risk     RiskConfig     `koanf:"risk"`
	Database DatabaseConfig `koanf:"database"`
	Snapshot SnapshotConfig `koanf:"snapshot"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// UpstreamConfig describes the analytics service that supplies flight records.
type UpstreamConfig struct {
	URL        string        `koanf:"url"`
	Timeout    time.Duration `koanf:"timeout"`
	RateLimit  float64       `koanf:"rate_limit"` // outbound requests per second, 0 = unlimited
	MaxRetries int           `koanf:"max_retries"`
	RetryDelay time.Duration `koanf:"retry_delay"`

	// FetchPageSize is the per_page used when pulling the full reference dataset.
	FetchPageSize int `koanf:"fetch_page_size"`

	// MaxFetchPages bounds a full-dataset pull.
	MaxFetchPages int `koanf:"max_fetch_pages"`
}

// APIConfig holds API pagination and response settings
type APIConfig struct {
	DefaultPageSize int           `koanf:"default_page_size"`
	MaxPageSize     int           `koanf:"max_page_size"`
	CacheTTL        time.Duration `koanf:"cache_ttl"`
}

// RiskConfig holds the initial thresholds and the reference refresh cadence.
type RiskConfig struct {
	Q60             float64       `koanf:"q60"`
	Q90             float64       `koanf:"q90"`
	RefreshInterval time.Duration `koanf:"refresh_interval"`
	RefreshOnStart  bool          `koanf:"refresh_on_start"`
}

// DatabaseConfig holds the DuckDB mirror settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// SnapshotConfig controls the last-known-good view store.
type SnapshotConfig struct {
	Enabled bool          `koanf:"enabled"`
	Path    string        `koanf:"path"` // empty = in-memory only
	TTL     time.Duration `koanf:"ttl"`
}

// SecurityConfig holds CORS and inbound rate limiting.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from all sources and validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// IsProduction reports whether ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
