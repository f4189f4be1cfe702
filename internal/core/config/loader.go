package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate runs every section validator.
func Validate(cfg *Config) error {
	if err := validateVersion(cfg); err != nil {
		return err
	}
	if err := validateDatabase(cfg); err != nil {
		return err
	}
	if err := validateOptimizer(cfg); err != nil {
		return err
	}
	if err := validateLog(cfg); err != nil {
		return err
	}
	return validateObservability(cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.DB.Driver) == "" {
		cfg.DB.Driver = DriverSQLite
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "schematune.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 5 * time.Second
	}

	if strings.TrimSpace(cfg.Optimizer.Selection) == "" {
		cfg.Optimizer.Selection = SelectionRandom
	}
	if strings.TrimSpace(cfg.Optimizer.IDField) == "" {
		cfg.Optimizer.IDField = "id"
	}
	if cfg.Optimizer.Matchers == nil {
		cfg.Optimizer.Matchers = []string{"datetime"}
	}
	if cfg.Optimizer.Burst <= 0 {
		cfg.Optimizer.Burst = 1
	}

	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if strings.TrimSpace(cfg.Log.Format) == "" {
		cfg.Log.Format = "text"
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "schematune"
	}
}

func normalize(cfg *Config) {
	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	cfg.DB.Path = strings.TrimSpace(cfg.DB.Path)
	cfg.DB.DSN = strings.TrimSpace(cfg.DB.DSN)
	cfg.Optimizer.Selection = strings.ToLower(strings.TrimSpace(cfg.Optimizer.Selection))
	cfg.Optimizer.IDField = strings.TrimSpace(cfg.Optimizer.IDField)
	cfg.Optimizer.IncludeTables = trimAll(cfg.Optimizer.IncludeTables)
	cfg.Optimizer.ExcludeTables = trimAll(cfg.Optimizer.ExcludeTables)
	cfg.Optimizer.ExcludeColumns = trimAll(cfg.Optimizer.ExcludeColumns)
	cfg.Optimizer.Matchers = trimAll(cfg.Optimizer.Matchers)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
