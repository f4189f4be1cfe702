package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"schematune/internal/engine/pattern"
	"schematune/internal/shared/util"
)

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.DB.Driver)) {
	case DriverSQLite:
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return fmt.Errorf("db.path must not be empty when db.driver=sqlite")
		}
	case DriverMySQL:
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return fmt.Errorf("db.dsn must not be empty when db.driver=mysql")
		}
	default:
		return fmt.Errorf("db.driver must be one of: sqlite, mysql, got %q", cfg.DB.Driver)
	}
	if cfg.DB.BusyTimeout < 0 || cfg.DB.BusyTimeout > 10*time.Minute {
		return fmt.Errorf("db.busy_timeout must be between 0 and 10m")
	}
	return nil
}

func validateOptimizer(cfg *Config) error {
	opt := cfg.Optimizer
	switch strings.ToLower(strings.TrimSpace(opt.Selection)) {
	case SelectionRandom, SelectionRoundRobin:
	default:
		return fmt.Errorf("optimizer.selection must be one of: random, round_robin")
	}
	if strings.TrimSpace(opt.IDField) == "" {
		return fmt.Errorf("optimizer.id_field must not be empty")
	}
	if math.IsNaN(opt.RateLimit) || opt.RateLimit < 0 {
		return fmt.Errorf("optimizer.rate_limit must be >= 0")
	}
	if opt.Burst < 1 {
		return fmt.Errorf("optimizer.burst must be >= 1")
	}

	if _, err := util.NewFilter(opt.IncludeTables, opt.ExcludeTables); err != nil {
		return fmt.Errorf("optimizer tables: %w", err)
	}
	if _, err := util.NewFilter(nil, opt.ExcludeColumns); err != nil {
		return fmt.Errorf("optimizer.exclude_columns: %w", err)
	}

	builtin := pattern.Default()
	seen := make(map[string]bool, len(opt.Matchers))
	for _, name := range opt.Matchers {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return fmt.Errorf("optimizer.matchers entries must not be empty")
		}
		if _, ok := builtin.Lookup(key); !ok {
			return fmt.Errorf("optimizer.matchers references unknown matcher %q (known: %s)", name, strings.Join(builtin.Names(), ", "))
		}
		if seen[key] {
			return fmt.Errorf("optimizer.matchers contains duplicate entry %q", name)
		}
		seen[key] = true
	}
	return nil
}

func validateLog(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Log.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Log.Format)) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be one of: text, json")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.EnableTracing && strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		return fmt.Errorf("observability.service_name must not be empty when tracing is enabled")
	}
	endpoint := strings.TrimSpace(cfg.Observability.OTLPEndpoint)
	if strings.Contains(endpoint, "://") {
		return fmt.Errorf("observability.otlp_endpoint must be host:port, got %q", endpoint)
	}
	return nil
}
