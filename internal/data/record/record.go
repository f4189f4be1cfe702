// Package record is a minimal row store that raises an update event to its
// observers after every successful write.
package record

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"schematune/internal/core/errors"
	"schematune/internal/core/ports"
	"schematune/internal/data/dialect"
	"schematune/internal/data/schema"
	"schematune/internal/engine/value"
	"schematune/internal/shared/observability"
	"schematune/internal/shared/util"
)

// IDField is the primary key column every table is expected to have.
const IDField = "id"

// Bean is one row of Type identified by ID.
type Bean struct {
	Type   string
	ID     int64
	Fields map[string]any
}

var _ ports.Record = (*Bean)(nil)

func (b *Bean) Table() string { return b.Type }

// Export returns the fields including the identifier.
func (b *Bean) Export() map[string]any {
	out := make(map[string]any, len(b.Fields)+1)
	for k, v := range b.Fields {
		out[k] = v
	}
	out[IDField] = b.ID
	return out
}

// Store reads and writes beans and notifies observers of updates.
type Store struct {
	adapter   ports.Adapter
	dialect   dialect.Dialect
	inspector *schema.Inspector
	logger    *slog.Logger

	mu        sync.RWMutex
	observers []ports.Observer
}

func NewStore(adapter ports.Adapter, d dialect.Dialect, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		adapter:   adapter,
		dialect:   d,
		inspector: schema.NewInspector(adapter, d),
		logger:    logger,
	}
}

// Register adds an observer called after every successful Update.
func (s *Store) Register(obs ports.Observer) {
	if obs == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// Load reads the row of table with the given id.
func (s *Store) Load(ctx context.Context, table string, id int64) (*Bean, error) {
	cols, err := s.inspector.ColumnsOf(ctx, table)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxTable, table)
	}
	if len(cols) == 0 {
		de := &errors.DomainError{Code: errors.CodeNotFound, Message: fmt.Sprintf("table %q not found", table)}
		return nil, de.WithContext(errors.CtxTable, table)
	}

	qt, err := s.dialect.QuoteIdentifier(table)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid table name")
	}
	qid, err := s.dialect.QuoteIdentifier(IDField)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "quote id column")
	}
	quoted := make([]string, 0, len(cols))
	for _, c := range cols {
		q, err := s.dialect.QuoteIdentifier(c.Name)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, "invalid column name")
		}
		quoted = append(quoted, q)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", strings.Join(quoted, ", "), qt, qid)
	rows, err := s.adapter.QueryRows(ctx, query, id)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "load record"), errors.CtxTable, table)
	}
	if len(rows) == 0 {
		de := &errors.DomainError{Code: errors.CodeNotFound, Message: fmt.Sprintf("%s %d not found", table, id)}
		return nil, de.WithContext(errors.CtxTable, table)
	}

	bean := &Bean{Type: table, ID: id, Fields: make(map[string]any, len(cols))}
	for i, c := range cols {
		if c.Name == IDField {
			continue
		}
		bean.Fields[c.Name] = rows[0][i]
	}
	return bean, nil
}

// Update writes every field of b with bound parameters, then notifies the
// observers in registration order. Observers cannot change the result.
func (s *Store) Update(ctx context.Context, b *Bean) error {
	if b == nil || b.Type == "" {
		return errors.New(errors.CodeValidationError, "bean type is required")
	}
	fields := make(map[string]any, len(b.Fields))
	for k, v := range b.Fields {
		if k != IDField {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		return errors.New(errors.CodeValidationError, "no fields to update")
	}

	qt, err := s.dialect.QuoteIdentifier(b.Type)
	if err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "invalid table name")
	}
	qid, err := s.dialect.QuoteIdentifier(IDField)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "quote id column")
	}

	names := util.SortedStringKeys(fields)
	sets := make([]string, 0, len(names))
	args := make([]any, 0, len(names)+1)
	for _, name := range names {
		qc, err := s.dialect.QuoteIdentifier(name)
		if err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "invalid column name"), errors.CtxColumn, name)
		}
		sets = append(sets, qc+" = ?")
		args = append(args, fields[name])
	}
	args = append(args, b.ID)

	exists, err := s.adapter.QueryScalar(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", qt, qid), b.ID)
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "check record"), errors.CtxTable, b.Type)
	}
	n, err := count(exists)
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "check record"), errors.CtxTable, b.Type)
	}
	if n == 0 {
		de := &errors.DomainError{Code: errors.CodeNotFound, Message: fmt.Sprintf("%s %d not found", b.Type, b.ID)}
		return de.WithContext(errors.CtxTable, b.Type)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", qt, strings.Join(sets, ", "), qid)
	if err := s.adapter.Execute(ctx, query, args...); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "update record"), errors.CtxTable, b.Type)
	}
	observability.RecordWritesTotal.WithLabelValues(b.Type).Inc()

	s.notify(ctx, &Bean{Type: b.Type, ID: b.ID, Fields: fields})
	return nil
}

func (s *Store) notify(ctx context.Context, b *Bean) {
	s.mu.RLock()
	observers := append([]ports.Observer(nil), s.observers...)
	s.mu.RUnlock()

	for _, obs := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("update observer panicked", "table", b.Type, "panic", r)
				}
			}()
			obs.OnUpdate(ctx, b)
		}()
	}
}

// count parses a COUNT(*) result whatever type the driver returned it as.
func count(v any) (int64, error) {
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
