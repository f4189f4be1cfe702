package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"schematune/internal/core/app"
	"schematune/internal/core/config"
	"schematune/internal/shared/observability"
)

const defaultConfigPath = "./schematune.toml"

type globalFlags struct {
	configPath string
	dbPath     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:          "schematune",
		Short:        "Narrow and specialize column types from the data they hold",
		Long:         "schematune writes records through a store whose updates trigger opportunistic, verified column type changes.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to config file (default ./schematune.toml when present)")
	rootCmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "SQLite database path, overrides db.path")
	rootCmd.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "Enable debug logging")

	rootCmd.AddCommand(updateCmd(flags))
	rootCmd.AddCommand(columnsCmd(flags))
	rootCmd.AddCommand(healthCmd(flags))
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	var cfg *config.Config
	path := flags.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
	}

	config.ApplyEnvOverrides(cfg)
	if flags.dbPath != "" {
		cfg.DB.Path = flags.dbPath
	}
	if flags.verbose {
		cfg.Log.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg config.Log, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openApp loads config, installs logging and tracing and opens the app. The
// returned cleanup closes everything in reverse order.
func openApp(ctx context.Context, cmd *cobra.Command, flags *globalFlags, opts ...app.Option) (*app.App, func(), error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	shutdown := func(context.Context) error { return nil }
	if cfg.Observability.EnableTracing {
		shutdown, err = observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
		if err != nil {
			return nil, nil, err
		}
	}

	a, err := app.New(ctx, cfg, logger, opts...)
	if err != nil {
		_ = shutdown(ctx)
		return nil, nil, err
	}
	cleanup := func() {
		if err := a.Close(ctx); err != nil {
			logger.Warn("close app", "error", err)
		}
		if err := shutdown(ctx); err != nil {
			logger.Warn("shutdown tracing", "error", err)
		}
	}
	return a, cleanup, nil
}
