// Package schema reads live column metadata. Nothing is cached: every call
// reflects the schema at that moment.
package schema

import (
	"context"
	"fmt"

	"schematune/internal/core/ports"
	"schematune/internal/data/dialect"
	"schematune/internal/engine/value"
)

// Column describes one column as declared in the database.
type Column struct {
	Name string
	Type string
}

// Columns is an ordered column snapshot, valid for a single decision.
type Columns []Column

// Lookup returns the column called name.
func (cs Columns) Lookup(name string) (Column, bool) {
	for _, c := range cs {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Map returns column name -> declared type.
func (cs Columns) Map() map[string]string {
	out := make(map[string]string, len(cs))
	for _, c := range cs {
		out[c.Name] = c.Type
	}
	return out
}

// Inspector resolves table metadata through the adapter.
type Inspector struct {
	adapter ports.Adapter
	dialect dialect.Dialect
}

func NewInspector(adapter ports.Adapter, d dialect.Dialect) *Inspector {
	return &Inspector{adapter: adapter, dialect: d}
}

// ColumnsOf lists the columns of table. A missing table yields an empty
// snapshot, not an error.
func (i *Inspector) ColumnsOf(ctx context.Context, table string) (Columns, error) {
	query, args := i.dialect.ColumnsQuery(table)
	rows, err := i.adapter.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list columns of %q: %w", table, err)
	}
	cols := make(Columns, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("list columns of %q: expected 2 fields, got %d", table, len(row))
		}
		name, ok := value.Text(row[0])
		if !ok {
			continue
		}
		typ, _ := value.Text(row[1])
		cols = append(cols, Column{Name: name, Type: typ})
	}
	return cols, nil
}

// EscapeIdentifier quotes raw for the inspector's dialect.
func (i *Inspector) EscapeIdentifier(raw string) (string, error) {
	return i.dialect.QuoteIdentifier(raw)
}

// Dialect returns the dialect the inspector renders with.
func (i *Inspector) Dialect() dialect.Dialect {
	return i.dialect
}
