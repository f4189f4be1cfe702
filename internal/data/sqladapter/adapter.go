package sqladapter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"schematune/internal/core/ports"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Adapter implements ports.Adapter over database/sql.
type Adapter struct {
	db *sql.DB
	q  queryer
}

var _ ports.Adapter = (*Adapter)(nil)

func New(db *sql.DB) *Adapter {
	return &Adapter{db: db, q: db}
}

func (a *Adapter) Execute(ctx context.Context, query string, args ...any) error {
	if _, err := a.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

func (a *Adapter) QueryRows(ctx context.Context, query string, args ...any) ([][]any, error) {
	rows, err := a.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	out := make([][]any, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range vals {
			// Drivers may reuse byte buffers between rows.
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func (a *Adapter) QueryScalar(ctx context.Context, query string, args ...any) (any, error) {
	var v any
	if err := a.q.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		return nil, fmt.Errorf("query scalar: %w", err)
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	return v, nil
}

func (a *Adapter) InTx(ctx context.Context, fn func(tx ports.Adapter) error) error {
	if a.db == nil {
		// Already inside a transaction; nest by reuse.
		return fn(a)
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Adapter{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// DB returns the underlying pool, nil for transaction-bound adapters.
func (a *Adapter) DB() *sql.DB {
	return a.db
}

// IsLockError reports whether err looks like lock contention rather than a
// schema or data problem.
func IsLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "busy") ||
		strings.Contains(msg, "lock wait timeout") ||
		strings.Contains(msg, "deadlock")
}
