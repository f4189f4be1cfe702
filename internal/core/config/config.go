package config

import (
	"time"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"

	SelectionRandom     = "random"
	SelectionRoundRobin = "round_robin"
)

type Config struct {
	Version       int           `toml:"version"`
	DB            Database      `toml:"db"`
	Optimizer     Optimizer     `toml:"optimizer"`
	Log           Log           `toml:"log"`
	Observability Observability `toml:"observability"`
}

type Database struct {
	Driver      string        `toml:"driver"`
	Path        string        `toml:"path"`
	DSN         string        `toml:"dsn"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Optimizer struct {
	Enabled        *bool    `toml:"enabled"`
	Selection      string   `toml:"selection"`
	Seed           uint64   `toml:"seed"`
	IDField        string   `toml:"id_field"`
	IncludeTables  []string `toml:"include_tables"`
	ExcludeTables  []string `toml:"exclude_tables"`
	ExcludeColumns []string `toml:"exclude_columns"`
	Matchers       []string `toml:"matchers"`
	RateLimit      float64  `toml:"rate_limit"`
	Burst          int      `toml:"burst"`
}

// IsEnabled reports whether updates should trigger optimization. Unset means enabled.
func (o Optimizer) IsEnabled() bool {
	return o.Enabled == nil || *o.Enabled
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Observability struct {
	EnableTracing bool   `toml:"enable_tracing"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	ServiceName   string `toml:"service_name"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
