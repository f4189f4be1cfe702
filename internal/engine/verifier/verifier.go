// Package verifier tests a candidate column type on a shadow copy of the
// column before any destructive change is made.
package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"schematune/internal/core/errors"
	"schematune/internal/core/ports"
	"schematune/internal/data/dialect"
	"schematune/internal/data/schema"
	"schematune/internal/shared/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ShadowColumn is the reserved column a narrowing is rehearsed in.
const ShadowColumn = "__test"

// Steps reported in aborted errors and the aborts metric.
const (
	StepAddShadow = "add_shadow"
	StepCopy      = "copy"
	StepCompare   = "compare"
	StepRetype    = "retype"
)

const (
	outcomeApplied = "applied"
	outcomeUnsafe  = "unsafe"
	outcomeAborted = "aborted"
)

// Verifier runs the shadow-column protocol. It holds no per-attempt state and
// is safe for concurrent use, although concurrent attempts on one table race
// for the shadow column and will abort each other.
type Verifier struct {
	adapter   ports.Adapter
	dialect   dialect.Dialect
	inspector *schema.Inspector
	logger    *slog.Logger
}

func New(adapter ports.Adapter, d dialect.Dialect, inspector *schema.Inspector, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	if inspector == nil {
		inspector = schema.NewInspector(adapter, d)
	}
	return &Verifier{adapter: adapter, dialect: d, inspector: inspector, logger: logger}
}

// TryNarrow rehearses changing table.column to candidate in ShadowColumn and
// applies the change only if no row differs after the round trip. A false
// result with a nil error means the data does not fit candidate. Database
// failures come back as CodeAborted errors carrying the failed step. The
// shadow column is dropped on every path once it has been added.
func (v *Verifier) TryNarrow(ctx context.Context, table, column, candidate string) (applied bool, err error) {
	attempt := uuid.NewString()
	ctx, span := observability.Tracer.Start(ctx, "verifier.TryNarrow", trace.WithAttributes(
		attribute.String("db.table", table),
		attribute.String("db.column", column),
		attribute.String("candidate", candidate),
		attribute.String("attempt", attempt),
	))
	defer span.End()

	log := v.logger.With("attempt", attempt, "table", table, "column", column, "candidate", candidate)
	start := time.Now()
	outcome := outcomeAborted
	defer func() {
		observability.VerifyDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.String("outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if column == ShadowColumn || column == dialect.SwapColumn {
		de := &errors.DomainError{Code: errors.CodeValidationError, Message: fmt.Sprintf("column %q is reserved", column)}
		return false, de.WithContext(errors.CtxTable, table).WithContext(errors.CtxColumn, column)
	}

	add, err := dialect.AddColumnSQL(v.dialect, table, ShadowColumn, candidate)
	if err != nil {
		return false, invalid(err, table, column)
	}
	drop, err := dialect.DropColumnSQL(v.dialect, table, ShadowColumn)
	if err != nil {
		return false, invalid(err, table, column)
	}
	cp, err := dialect.CopySQL(v.dialect, table, column, ShadowColumn, candidate)
	if err != nil {
		return false, invalid(err, table, column)
	}
	pairs, err := dialect.PairsSQL(v.dialect, table, column, ShadowColumn)
	if err != nil {
		return false, invalid(err, table, column)
	}

	v.dropStale(ctx, table, drop, log)

	if err := v.adapter.Execute(ctx, add); err != nil {
		return false, v.abort(err, StepAddShadow, table, column, log)
	}
	defer func() {
		// Cleanup must run even when the attempt's context is done.
		if dropErr := v.adapter.Execute(context.WithoutCancel(ctx), drop); dropErr != nil {
			observability.ShadowCleanupFailuresTotal.Inc()
			log.Warn("shadow column not dropped", "error", dropErr)
		}
	}()

	if err := v.adapter.Execute(ctx, cp); err != nil {
		return false, v.abort(err, StepCopy, table, column, log)
	}
	rows, err := v.adapter.QueryRows(ctx, pairs)
	if err != nil {
		return false, v.abort(err, StepCompare, table, column, log)
	}
	if diff := dialect.CountDiffs(rows); diff > 0 {
		outcome = outcomeUnsafe
		log.Debug("narrowing would change stored values", "rows", len(rows), "diff", diff)
		return false, nil
	}

	if err := v.dialect.Retype(ctx, v.adapter, table, column, candidate); err != nil {
		return false, v.abort(err, StepRetype, table, column, log)
	}
	outcome = outcomeApplied
	log.Info("column narrowed", "rows", len(rows))
	return true, nil
}

// dropStale removes a shadow column left behind by an earlier attempt.
// Failures are ignored; the add step reports a real conflict.
func (v *Verifier) dropStale(ctx context.Context, table, drop string, log *slog.Logger) {
	cols, err := v.inspector.ColumnsOf(ctx, table)
	if err == nil {
		if _, ok := cols.Lookup(ShadowColumn); !ok {
			return
		}
	}
	if err := v.adapter.Execute(ctx, drop); err != nil {
		log.Debug("stale shadow column not dropped", "error", err)
		return
	}
	log.Debug("dropped stale shadow column")
}

func (v *Verifier) abort(err error, step, table, column string, log *slog.Logger) error {
	observability.AbortsTotal.WithLabelValues(step).Inc()
	log.Warn("narrowing attempt aborted", "step", step, "error", err)
	return errors.Aborted(err, step, table, column)
}

func invalid(err error, table, column string) error {
	de := &errors.DomainError{Code: errors.CodeValidationError, Message: "invalid narrowing request", Err: err}
	return de.WithContext(errors.CtxTable, table).WithContext(errors.CtxColumn, column)
}
