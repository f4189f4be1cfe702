package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"schematune/internal/core/errors"
	"schematune/internal/data/dialect"
	"schematune/internal/engine/value"
	"schematune/internal/shared/observability"
)

const (
	StepCountTotal    = "count_total"
	StepCountMatching = "count_matching"
	StepSpecialize    = "specialize"
)

// specialize retypes the column to the first matcher's target when the
// sampled value and every stored row match it.
func (o *Optimizer) specialize(ctx context.Context, d Decision, v any, log *slog.Logger) (Decision, error) {
	text, ok := value.Text(v)
	if !ok {
		d.Reason = ReasonNullValue
		return d, nil
	}
	m, ok := o.matchers.First(text)
	if !ok {
		d.Reason = ReasonNoPattern
		return d, nil
	}
	d.Kind = KindSpecialize
	d.Type = m.Target()

	qc, err := o.inspector.EscapeIdentifier(d.Column)
	if err != nil {
		return d, errors.Wrap(err, errors.CodeValidationError, "invalid column name")
	}
	pred, err := o.dialect.MatchPredicate(qc, m.Shape())
	if err != nil {
		return d, errors.Wrap(err, errors.CodeNotSupported, fmt.Sprintf("matcher %s", m.Name()))
	}
	totalSQL, err := dialect.CountSQL(o.dialect, d.Table, "")
	if err != nil {
		return d, errors.Wrap(err, errors.CodeValidationError, "invalid table name")
	}
	matchSQL, err := dialect.CountSQL(o.dialect, d.Table, pred)
	if err != nil {
		return d, errors.Wrap(err, errors.CodeValidationError, "invalid table name")
	}

	total, err := o.count(ctx, totalSQL)
	if err != nil {
		return d, o.abort(err, StepCountTotal, d, log)
	}
	matched, err := o.count(ctx, matchSQL)
	if err != nil {
		return d, o.abort(err, StepCountMatching, d, log)
	}
	if total == 0 || matched != total {
		d.Reason = ReasonCoverage
		log.Debug("specialization blocked", "matcher", m.Name(), "total", total, "matched", matched)
		return d, nil
	}

	if err := o.dialect.Retype(ctx, o.adapter, d.Table, d.Column, d.Type); err != nil {
		return d, o.abort(err, StepSpecialize, d, log)
	}
	d.Applied = true
	log.Info("column specialized", "matcher", m.Name(), "type", d.Type, "rows", total)
	return d, nil
}

func (o *Optimizer) count(ctx context.Context, query string) (int64, error) {
	v, err := o.adapter.QueryScalar(ctx, query)
	if err != nil {
		return 0, err
	}
	text, ok := value.Text(v)
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("count is not an integer: %q", text)
	}
	return n, nil
}

func (o *Optimizer) abort(err error, step string, d Decision, log *slog.Logger) error {
	observability.AbortsTotal.WithLabelValues(step).Inc()
	log.Warn("specialization attempt aborted", "step", step, "error", err)
	return errors.Aborted(err, step, d.Table, d.Column)
}
