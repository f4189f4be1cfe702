package ports

import "context"

// Adapter executes SQL against the host database. Rows are fully materialized
// so callers may issue further statements while holding results.
type Adapter interface {
	Execute(ctx context.Context, query string, args ...any) error
	QueryRows(ctx context.Context, query string, args ...any) ([][]any, error)
	QueryScalar(ctx context.Context, query string, args ...any) (any, error)
	// InTx runs fn against an adapter bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Adapter) error) error
}

// Record is a persisted row as the write layer sees it.
type Record interface {
	// Table names the table backing the record.
	Table() string
	// Export returns a copy of field name -> current value, including the
	// identifier field.
	Export() map[string]any
}

// Observer reacts to a committed update. It must not fail or block the write
// that raised it.
type Observer interface {
	OnUpdate(ctx context.Context, rec Record)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, rec Record)

func (f ObserverFunc) OnUpdate(ctx context.Context, rec Record) {
	f(ctx, rec)
}
