package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"schematune/internal/core/config"
	"schematune/internal/data/database"
	"schematune/internal/data/dialect"
	"schematune/internal/data/record"
	"schematune/internal/data/schema"
	"schematune/internal/data/sqladapter"
	"schematune/internal/engine/optimizer"
	"schematune/internal/engine/pattern"
	"schematune/internal/shared/util"
)

// App wires the database, the record store and the optimizer observing it.
type App struct {
	Config    *config.Config
	DB        *sql.DB
	Adapter   *sqladapter.Adapter
	Dialect   dialect.Dialect
	Inspector *schema.Inspector
	Store     *record.Store
	// Optimizer is nil when optimizer.enabled is false.
	Optimizer *optimizer.Optimizer

	logger *slog.Logger
}

// Option customizes New.
type Option func(*options)

type options struct {
	onDecision func(context.Context, optimizer.Decision)
}

// WithDecisionHook receives the decision of every optimization the store's
// updates trigger.
func WithDecisionHook(fn func(context.Context, optimizer.Decision)) Option {
	return func(o *options) { o.onDecision = fn }
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	d, err := dialect.ByName(cfg.DB.Driver)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(ctx, database.Options{
		Driver:      cfg.DB.Driver,
		Path:        cfg.DB.Path,
		DSN:         cfg.DB.DSN,
		BusyTimeout: cfg.DB.BusyTimeout,
	})
	if err != nil {
		return nil, err
	}

	adapter := sqladapter.New(db)
	a := &App{
		Config:    cfg,
		DB:        db,
		Adapter:   adapter,
		Dialect:   d,
		Inspector: schema.NewInspector(adapter, d),
		Store:     record.NewStore(adapter, d, logger),
		logger:    logger,
	}

	if cfg.Optimizer.IsEnabled() {
		opt, err := buildOptimizer(adapter, d, cfg.Optimizer, logger, o.onDecision)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		a.Optimizer = opt
		a.Store.Register(opt)
	}

	logger.Debug("app initialized", "driver", cfg.DB.Driver, "dialect", d.Name(), "optimizer", a.Optimizer != nil)
	return a, nil
}

func buildOptimizer(adapter *sqladapter.Adapter, d dialect.Dialect, cfg config.Optimizer, logger *slog.Logger, onDecision func(context.Context, optimizer.Decision)) (*optimizer.Optimizer, error) {
	selector, err := optimizer.SelectorByName(cfg.Selection, cfg.Seed)
	if err != nil {
		return nil, err
	}
	matchers, err := pattern.Default().Select(cfg.Matchers)
	if err != nil {
		return nil, err
	}
	tables, err := util.NewFilter(cfg.IncludeTables, cfg.ExcludeTables)
	if err != nil {
		return nil, fmt.Errorf("table filter: %w", err)
	}
	columns, err := util.NewFilter(nil, cfg.ExcludeColumns)
	if err != nil {
		return nil, fmt.Errorf("column filter: %w", err)
	}

	return optimizer.New(adapter, d, optimizer.Options{
		Selector:   selector,
		Matchers:   matchers,
		Logger:     logger,
		Limiter:    util.NewLimiter(cfg.RateLimit, cfg.Burst),
		Tables:     tables,
		Columns:    columns,
		IDField:    cfg.IDField,
		OnDecision: onDecision,
	})
}

func (a *App) Close(ctx context.Context) error {
	if a == nil || a.DB == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		a.logger.Debug("closing app after context end", "error", err)
	}
	return a.DB.Close()
}
