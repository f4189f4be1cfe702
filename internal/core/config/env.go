package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: SCHEMATUNE_[SECTION]_[KEY] (e.g., SCHEMATUNE_DB_DSN).
func ApplyEnvOverrides(cfg *Config) {
	// Database
	setEnvString(&cfg.DB.Driver, "SCHEMATUNE_DB_DRIVER")
	setEnvString(&cfg.DB.Path, "SCHEMATUNE_DB_PATH")
	setEnvString(&cfg.DB.DSN, "SCHEMATUNE_DB_DSN")
	setEnvDuration(&cfg.DB.BusyTimeout, "SCHEMATUNE_DB_BUSY_TIMEOUT")

	// Optimizer
	if val, ok := os.LookupEnv("SCHEMATUNE_OPTIMIZER_ENABLED"); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("Applying env override", "key", "SCHEMATUNE_OPTIMIZER_ENABLED", "value", val)
			cfg.Optimizer.Enabled = &b
		}
	}
	setEnvString(&cfg.Optimizer.Selection, "SCHEMATUNE_OPTIMIZER_SELECTION")
	setEnvUint64(&cfg.Optimizer.Seed, "SCHEMATUNE_OPTIMIZER_SEED")
	setEnvFloat64(&cfg.Optimizer.RateLimit, "SCHEMATUNE_OPTIMIZER_RATE_LIMIT")
	setEnvInt(&cfg.Optimizer.Burst, "SCHEMATUNE_OPTIMIZER_BURST")

	// Log
	setEnvString(&cfg.Log.Level, "SCHEMATUNE_LOG_LEVEL")
	setEnvString(&cfg.Log.Format, "SCHEMATUNE_LOG_FORMAT")

	// Observability
	setEnvBool(&cfg.Observability.EnableTracing, "SCHEMATUNE_OBSERVABILITY_ENABLE_TRACING")
	setEnvString(&cfg.Observability.OTLPEndpoint, "SCHEMATUNE_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Observability.ServiceName, "SCHEMATUNE_OBSERVABILITY_SERVICE_NAME")

	normalize(cfg)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("Applying env override", "key", key)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("Applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvUint64(target *uint64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if u, err := strconv.ParseUint(val, 10, 64); err == nil {
			slog.Debug("Applying env override", "key", key, "value", val)
			*target = u
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("Applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("Applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("Applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
