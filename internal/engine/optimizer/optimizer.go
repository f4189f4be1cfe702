// Package optimizer reacts to record updates by sampling one field and
// narrowing or specializing its column when the stored data allows it.
package optimizer

import (
	"context"
	"fmt"
	"log/slog"

	"schematune/internal/core/errors"
	"schematune/internal/core/ports"
	"schematune/internal/data/dialect"
	"schematune/internal/data/schema"
	"schematune/internal/data/sqladapter"
	"schematune/internal/engine/pattern"
	"schematune/internal/engine/rank"
	"schematune/internal/engine/value"
	"schematune/internal/engine/verifier"
	"schematune/internal/shared/observability"
	"schematune/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const StepInspect = "inspect"

const defaultIDField = "id"

// Options tunes an Optimizer. Zero values select the defaults.
type Options struct {
	Selector Selector
	Matchers *pattern.Registry
	Logger   *slog.Logger
	Limiter  *util.Limiter
	Tables   *util.Filter
	Columns  *util.Filter
	IDField  string

	// OnError receives every error OnUpdate discards.
	OnError func(ctx context.Context, rec ports.Record, err error)

	// OnDecision receives the decision of every OnUpdate that completed.
	OnDecision func(ctx context.Context, d Decision)
}

// Optimizer is the update-event handler. It keeps no state between events
// apart from the field selector's.
type Optimizer struct {
	adapter    ports.Adapter
	dialect    dialect.Dialect
	inspector  *schema.Inspector
	verifier   *verifier.Verifier
	selector   Selector
	matchers   *pattern.Registry
	logger     *slog.Logger
	limiter    *util.Limiter
	tables     *util.Filter
	columns    *util.Filter
	idField    string
	onError    func(ctx context.Context, rec ports.Record, err error)
	onDecision func(ctx context.Context, d Decision)
}

var _ ports.Observer = (*Optimizer)(nil)

// New validates the dialect's type map and builds an optimizer.
func New(adapter ports.Adapter, d dialect.Dialect, opts Options) (*Optimizer, error) {
	if adapter == nil {
		return nil, fmt.Errorf("adapter is required")
	}
	if err := dialect.Validate(d); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid dialect")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Selector == nil {
		opts.Selector = NewRandomSelector(0)
	}
	if opts.Matchers == nil {
		opts.Matchers = pattern.Default()
	}
	if opts.IDField == "" {
		opts.IDField = defaultIDField
	}
	inspector := schema.NewInspector(adapter, d)
	return &Optimizer{
		adapter:    adapter,
		dialect:    d,
		inspector:  inspector,
		verifier:   verifier.New(adapter, d, inspector, opts.Logger),
		selector:   opts.Selector,
		matchers:   opts.Matchers,
		logger:     opts.Logger,
		limiter:    opts.Limiter,
		tables:     opts.Tables,
		columns:    opts.Columns,
		idField:    opts.IDField,
		onError:    opts.OnError,
		onDecision: opts.OnDecision,
	}, nil
}

// OnUpdate optimizes after a record write. It never fails and never panics:
// errors are logged, counted and handed to OnError, then dropped.
func (o *Optimizer) OnUpdate(ctx context.Context, rec ports.Record) {
	defer func() {
		if r := recover(); r != nil {
			o.report(ctx, rec, errors.New(errors.CodeInternal, fmt.Sprintf("optimizer panic: %v", r)))
		}
	}()
	observability.UpdateEventsTotal.Inc()
	d, err := o.Optimize(ctx, rec)
	if err != nil {
		o.report(ctx, rec, err)
		return
	}
	if o.onDecision != nil {
		o.onDecision(ctx, d)
	}
}

func (o *Optimizer) report(ctx context.Context, rec ports.Record, err error) {
	table := ""
	if rec != nil {
		table = rec.Table()
	}
	o.logger.Warn("optimization abandoned", "table", table, "lock_contention", sqladapter.IsLockError(err), "error", err)
	if o.onError == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("optimizer error hook panicked", "panic", r)
		}
	}()
	o.onError(ctx, rec, err)
}

// Optimize runs one decision for rec and returns what it did. Errors are
// CodeAborted for database failures and CodeValidationError for names the
// dialect refuses; the schema is unchanged in both cases.
func (o *Optimizer) Optimize(ctx context.Context, rec ports.Record) (d Decision, err error) {
	if rec == nil {
		return Decision{Kind: KindNone, Reason: ReasonNoFields}, nil
	}
	table := rec.Table()
	ctx, span := observability.Tracer.Start(ctx, "optimizer.Optimize", trace.WithAttributes(attribute.String("db.table", table)))
	defer span.End()
	defer func() {
		outcome := d.outcome()
		if err != nil {
			outcome = "aborted"
			if d.Reason == "" {
				d.Reason = ReasonAborted
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.DecisionsTotal.WithLabelValues(string(d.Kind), outcome).Inc()
		span.SetAttributes(
			attribute.String("db.column", d.Column),
			attribute.String("decision", string(d.Kind)),
			attribute.Bool("applied", d.Applied),
		)
	}()

	d = Decision{Kind: KindNone, Table: table}
	if !o.tables.Allow(table) {
		d.Reason = ReasonTableFiltered
		return d, nil
	}

	fields := o.candidateFields(rec)
	if len(fields) == 0 {
		d.Reason = ReasonNoFields
		return d, nil
	}
	if !o.limiter.Allow(1) {
		observability.UpdateEventsThrottledTotal.Inc()
		d.Reason = ReasonThrottled
		return d, nil
	}

	field := o.selector.Pick(table, util.SortedStringKeys(fields))
	d.Column = field
	log := o.logger.With("table", table, "column", field)

	cols, err := o.inspector.ColumnsOf(ctx, table)
	if err != nil {
		observability.AbortsTotal.WithLabelValues(StepInspect).Inc()
		return d, errors.Aborted(err, StepInspect, table, field)
	}
	col, ok := cols.Lookup(field)
	if !ok {
		d.Reason = ReasonUnknownColumn
		return d, nil
	}

	v := fields[field]
	declared := o.dialect.DeclaredRank(col.Type)
	if declared == rank.Specified {
		d.Reason = ReasonSpecified
		if text, ok := value.Text(v); ok {
			if m, ok := o.matchers.ForTarget(dialect.NormalizeType(col.Type)); ok && m.Match(text) {
				d.Reason = ReasonAlreadyOptimal
			}
		}
		log.Debug("column left as declared", "type", col.Type, "reason", d.Reason)
		return d, nil
	}

	required := rank.Of(v)
	if required < declared {
		return o.narrow(ctx, d, required, log)
	}
	return o.specialize(ctx, d, v, log)
}

// candidateFields copies the record's fields minus the identifier, the
// reserved working columns and excluded names.
func (o *Optimizer) candidateFields(rec ports.Record) map[string]any {
	exported := rec.Export()
	fields := make(map[string]any, len(exported))
	for name, v := range exported {
		if name == o.idField || isReserved(name) || !o.columns.Allow(name) {
			continue
		}
		fields[name] = v
	}
	return fields
}

func isReserved(name string) bool {
	return name == verifier.ShadowColumn || name == dialect.SwapColumn
}

func (o *Optimizer) narrow(ctx context.Context, d Decision, required rank.Rank, log *slog.Logger) (Decision, error) {
	typ, ok := o.dialect.ConcreteType(required)
	if !ok {
		return d, errors.New(errors.CodeInternal, fmt.Sprintf("no concrete type for rank %s", required))
	}
	d.Kind = KindNarrow
	d.Type = typ

	applied, err := o.verifier.TryNarrow(ctx, d.Table, d.Column, typ)
	if err != nil {
		return d, err
	}
	d.Applied = applied
	if !applied {
		d.Reason = ReasonUnsafe
	}
	log.Debug("narrowing attempted", "type", typ, "applied", applied)
	return d, nil
}
