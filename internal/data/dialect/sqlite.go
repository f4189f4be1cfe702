package dialect

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"schematune/internal/core/errors"
	"schematune/internal/core/ports"
	"schematune/internal/engine/pattern"
	"schematune/internal/engine/rank"
	"schematune/internal/engine/value"
)

// SwapColumn is the reserved column SQLite.Retype rebuilds through.
const SwapColumn = "__swap"

// SQLite targets SQLite 3.35+ (DROP COLUMN). Column types are affinities
// only, so copies go through conversion expressions that mimic the storage
// of the named type, and Retype rebuilds the column inside a transaction.
type SQLite struct{}

// SQLite's type grammar allows no keyword after a parenthesized size, so
// the unsigned types are spelled without a display width.
var sqliteTypes = map[rank.Rank]string{
	rank.Bool:   "boolean",
	rank.UInt8:  "tinyint unsigned",
	rank.UInt32: "int unsigned",
	rank.Double: "double",
	rank.Text8:  "varchar(255)",
	rank.Text16: "text",
	rank.Text32: "longtext",
}

var sqliteDeclared = map[string]rank.Rank{
	"boolean":          rank.Bool,
	"tinyint unsigned": rank.UInt8,
	"int unsigned":     rank.UInt32,
	"double":           rank.Double,
	"real":             rank.Double,
	"varchar(255)":     rank.Text8,
	"text":             rank.Text16,
	"longtext":         rank.Text32,
}

// Conversions keyed by normalized type; %[1]s is the quoted source column.
var sqliteCopy = map[string]string{
	"boolean":          "CASE WHEN CAST(%[1]s AS INTEGER) IN (0, 1) THEN CAST(%[1]s AS INTEGER) END",
	"tinyint unsigned": "CASE WHEN CAST(%[1]s AS INTEGER) BETWEEN 0 AND 255 THEN CAST(%[1]s AS INTEGER) END",
	"int unsigned":     "CASE WHEN CAST(%[1]s AS INTEGER) BETWEEN 0 AND 4294967295 THEN CAST(%[1]s AS INTEGER) END",
	"double":           "CAST(%[1]s AS REAL)",
	"real":             "CAST(%[1]s AS REAL)",
	"varchar(255)":     "substr(CAST(%[1]s AS TEXT), 1, 255)",
	"text":             "substr(CAST(%[1]s AS TEXT), 1, 65535)",
	"longtext":         "CAST(%[1]s AS TEXT)",
	"datetime":         "CASE WHEN datetime(%[1]s) IS NOT NULL THEN %[1]s END",
}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) QuoteIdentifier(raw string) (string, error) {
	return quoteWith(raw, `"`)
}

func (SQLite) ColumnsQuery(table string) (string, []any) {
	return `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`, []any{table}
}

func (SQLite) ConcreteType(r rank.Rank) (string, bool) {
	typ, ok := sqliteTypes[r]
	return typ, ok
}

func (SQLite) DeclaredRank(typ string) rank.Rank {
	if r, ok := sqliteDeclared[NormalizeType(typ)]; ok {
		return r
	}
	return rank.Specified
}

func (SQLite) CopyExpr(quotedColumn, typ string) string {
	if tmpl, ok := sqliteCopy[NormalizeType(typ)]; ok {
		return fmt.Sprintf(tmpl, quotedColumn)
	}
	return quotedColumn
}

func (SQLite) MatchPredicate(quotedColumn string, shape pattern.Shape) (string, error) {
	if len(shape.Globs) == 0 {
		return "", fmt.Errorf("sqlite: pattern has no GLOB form")
	}
	parts := make([]string, 0, len(shape.Globs))
	for _, g := range shape.Globs {
		parts = append(parts, fmt.Sprintf("%s GLOB %s", quotedColumn, sqlString(g)))
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

// Retype copies column through typ into SwapColumn, refuses the change if
// any row differs, then drops the original and renames the copy. All of it
// runs in one transaction. The retyped column moves to the end of the table
// and keeps its NOT NULL and DEFAULT clauses. Columns whose definition the
// rebuild cannot reproduce are refused with CodeNotSupported.
func (d SQLite) Retype(ctx context.Context, a ports.Adapter, table, column, typ string) error {
	qt, qc, err := quotePair(d, table, column)
	if err != nil {
		return err
	}
	qs, err := d.QuoteIdentifier(SwapColumn)
	if err != nil {
		return err
	}
	if err := CheckType(typ); err != nil {
		return err
	}
	cp, err := CopySQL(d, table, column, SwapColumn, typ)
	if err != nil {
		return err
	}
	pairs, err := PairsSQL(d, table, column, SwapColumn)
	if err != nil {
		return err
	}

	return a.InTx(ctx, func(tx ports.Adapter) error {
		clauses, err := d.columnClauses(ctx, tx, table, column)
		if err != nil {
			return err
		}
		add, err := AddColumnSQL(d, table, SwapColumn, typ, clauses...)
		if err != nil {
			return err
		}
		if err := tx.Execute(ctx, add); err != nil {
			return fmt.Errorf("add swap column: %w", err)
		}
		if err := tx.Execute(ctx, cp); err != nil {
			return fmt.Errorf("copy into swap column: %w", err)
		}
		rows, err := tx.QueryRows(ctx, pairs)
		if err != nil {
			return fmt.Errorf("read swap pairs: %w", err)
		}
		if n := CountDiffs(rows); n > 0 {
			de := &errors.DomainError{
				Code:    errors.CodeLossy,
				Message: fmt.Sprintf("%d row(s) would change as %s", n, typ),
			}
			return de.WithContext(errors.CtxTable, table).WithContext(errors.CtxColumn, column)
		}
		if err := tx.Execute(ctx, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", qt, qc)); err != nil {
			return fmt.Errorf("drop original column: %w", err)
		}
		if err := tx.Execute(ctx, fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", qt, qs, qc)); err != nil {
			return fmt.Errorf("rename swap column: %w", err)
		}
		return nil
	})
}

// unreproducible matches table definitions carrying clauses a rebuilt column
// would lose. The match is per table, so one such clause blocks every column.
var unreproducible = regexp.MustCompile(`(?i)\b(CHECK|COLLATE|REFERENCES|GENERATED)\b|\bAS\s*\(`)

// columnClauses returns the NOT NULL and DEFAULT clauses declared on column.
func (d SQLite) columnClauses(ctx context.Context, a ports.Adapter, table, column string) ([]string, error) {
	refuse := func(msg string) error {
		de := &errors.DomainError{Code: errors.CodeNotSupported, Message: msg}
		return de.WithContext(errors.CtxTable, table).WithContext(errors.CtxColumn, column)
	}

	ddl, err := a.QueryScalar(ctx, `SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
	if err != nil {
		return nil, fmt.Errorf("read table definition: %w", err)
	}
	if text, ok := value.Text(ddl); ok && unreproducible.MatchString(text) {
		return nil, refuse("table definition has constraints a rebuilt column cannot keep")
	}

	rows, err := a.QueryRows(ctx, `SELECT "notnull", dflt_value FROM pragma_table_info(?) WHERE name = ?`, table, column)
	if err != nil {
		return nil, fmt.Errorf("read column definition: %w", err)
	}
	if len(rows) == 0 || len(rows[0]) < 2 {
		return nil, fmt.Errorf("column %q not found in %q", column, table)
	}
	notNull, _ := value.Text(rows[0][0])
	dflt, hasDefault := value.Text(rows[0][1])

	var clauses []string
	if notNull == "1" {
		if !hasDefault {
			// ADD COLUMN cannot declare NOT NULL without a default.
			return nil, refuse("not null column without a default cannot be rebuilt")
		}
		clauses = append(clauses, "NOT NULL")
	}
	if hasDefault {
		clauses = append(clauses, "DEFAULT "+dflt)
	}
	return clauses, nil
}

// CountDiffs counts (a, b) rows whose values are not equal at storage level.
func CountDiffs(rows [][]any) int {
	diff := 0
	for _, row := range rows {
		if len(row) < 2 || !value.Equal(row[0], row[1]) {
			diff++
		}
	}
	return diff
}
