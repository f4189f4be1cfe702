package config

import (
	"strings"
	"testing"
)

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "Version", mutate: func(c *Config) { c.Version = 3 }, want: "unsupported config version"},
		{name: "Driver", mutate: func(c *Config) { c.DB.Driver = "postgres" }, want: "db.driver"},
		{name: "SQLitePath", mutate: func(c *Config) { c.DB.Path = "" }, want: "db.path"},
		{name: "Selection", mutate: func(c *Config) { c.Optimizer.Selection = "weighted" }, want: "optimizer.selection"},
		{name: "IDField", mutate: func(c *Config) { c.Optimizer.IDField = " " }, want: "optimizer.id_field"},
		{name: "RateLimit", mutate: func(c *Config) { c.Optimizer.RateLimit = -1 }, want: "optimizer.rate_limit"},
		{name: "Burst", mutate: func(c *Config) { c.Optimizer.Burst = 0 }, want: "optimizer.burst"},
		{name: "TableGlob", mutate: func(c *Config) { c.Optimizer.ExcludeTables = []string{"[oops"} }, want: "optimizer tables"},
		{name: "ColumnGlob", mutate: func(c *Config) { c.Optimizer.ExcludeColumns = []string{"{a"} }, want: "optimizer.exclude_columns"},
		{name: "UnknownMatcher", mutate: func(c *Config) { c.Optimizer.Matchers = []string{"uuid"} }, want: "unknown matcher"},
		{name: "DuplicateMatcher", mutate: func(c *Config) { c.Optimizer.Matchers = []string{"datetime", "DateTime"} }, want: "duplicate"},
		{name: "LogLevel", mutate: func(c *Config) { c.Log.Level = "trace" }, want: "log.level"},
		{name: "LogFormat", mutate: func(c *Config) { c.Log.Format = "xml" }, want: "log.format"},
		{name: "Endpoint", mutate: func(c *Config) { c.Observability.OTLPEndpoint = "http://collector:4317" }, want: "otlp_endpoint"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidate_EmptyMatchersDisableSpecialization(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Optimizer.Matchers = []string{}
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected empty matcher list to be valid, got %v", err)
	}
}
