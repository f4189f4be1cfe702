// Package dialect renders the SQL the optimizer needs for a given database:
// identifier escaping, the rank to column-type map, column listing, value
// conversion for shadow copies, pattern predicates and column retyping.
package dialect

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"schematune/internal/core/ports"
	"schematune/internal/engine/pattern"
	"schematune/internal/engine/rank"
)

const maxIdentifierLen = 64

// Dialect is the database-specific schema writer.
type Dialect interface {
	Name() string
	// QuoteIdentifier returns raw escaped for interpolation into a statement.
	QuoteIdentifier(raw string) (string, error)
	// ColumnsQuery returns a parameterized query yielding (name, declared type)
	// rows for table in column order.
	ColumnsQuery(table string) (string, []any)
	// ConcreteType maps a generic rank to a column type keyword.
	ConcreteType(r rank.Rank) (string, bool)
	// DeclaredRank ranks a declared column type. Unknown types are rank.Specified.
	DeclaredRank(typ string) rank.Rank
	// CopyExpr is the expression written into a column of type typ when
	// copying from quotedColumn.
	CopyExpr(quotedColumn, typ string) string
	// MatchPredicate is a WHERE clause true when quotedColumn fits shape.
	MatchPredicate(quotedColumn string, shape pattern.Shape) (string, error)
	// Retype changes the declared type of column in table to typ. It must
	// fail rather than store a changed value.
	Retype(ctx context.Context, a ports.Adapter, table, column, typ string) error
}

// MySQL column types per rank. Bool is the signed tinyint(1), the one
// integer type whose display width MySQL 8.0.19+ still reports.
var mysqlTypes = map[rank.Rank]string{
	rank.Bool:   "tinyint(1)",
	rank.UInt8:  "tinyint(3) unsigned",
	rank.UInt32: "int(11) unsigned",
	rank.Double: "double",
	rank.Text8:  "varchar(255)",
	rank.Text16: "text",
	rank.Text32: "longtext",
}

// Validate checks that d maps every generic rank to a type that ranks back
// to itself. A failure is a configuration error.
func Validate(d Dialect) error {
	if d == nil {
		return fmt.Errorf("dialect must not be nil")
	}
	for _, r := range rank.All() {
		typ, ok := d.ConcreteType(r)
		if !ok || strings.TrimSpace(typ) == "" {
			return fmt.Errorf("dialect %s: no concrete type for rank %s", d.Name(), r)
		}
		if !validType.MatchString(typ) {
			return fmt.Errorf("dialect %s: concrete type %q for rank %s is not a plain type keyword", d.Name(), typ, r)
		}
		if back := d.DeclaredRank(typ); back != r {
			return fmt.Errorf("dialect %s: type %q ranks as %s, want %s", d.Name(), typ, back, r)
		}
	}
	return nil
}

// NormalizeType lowercases typ and collapses whitespace.
func NormalizeType(typ string) string {
	return strings.Join(strings.Fields(strings.ToLower(typ)), " ")
}

// validType restricts type keywords interpolated into DDL.
var validType = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_ ]*(\([0-9, ]+\))?( [A-Za-z]+)*$`)

// CheckType rejects type keywords that are not plain type names.
func CheckType(typ string) error {
	if !validType.MatchString(typ) {
		return fmt.Errorf("invalid column type %q", typ)
	}
	return nil
}

func checkIdentifier(raw string) error {
	switch {
	case raw == "":
		return fmt.Errorf("identifier must not be empty")
	case len(raw) > maxIdentifierLen:
		return fmt.Errorf("identifier %q exceeds %d bytes", raw, maxIdentifierLen)
	case strings.ContainsRune(raw, 0):
		return fmt.Errorf("identifier %q contains NUL", raw)
	}
	return nil
}

func quoteWith(raw string, quote string) (string, error) {
	if err := checkIdentifier(raw); err != nil {
		return "", err
	}
	return quote + strings.ReplaceAll(raw, quote, quote+quote) + quote, nil
}

// AddColumnSQL renders ALTER TABLE ... ADD COLUMN. Clauses are appended
// verbatim after the type and must come from the database's own schema.
func AddColumnSQL(d Dialect, table, column, typ string, clauses ...string) (string, error) {
	qt, qc, err := quotePair(d, table, column)
	if err != nil {
		return "", err
	}
	if err := CheckType(typ); err != nil {
		return "", err
	}
	q := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", qt, qc, typ)
	if len(clauses) > 0 {
		q += " " + strings.Join(clauses, " ")
	}
	return q, nil
}

// DropColumnSQL renders ALTER TABLE ... DROP COLUMN.
func DropColumnSQL(d Dialect, table, column string) (string, error) {
	qt, qc, err := quotePair(d, table, column)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", qt, qc), nil
}

// CopySQL renders an UPDATE writing src, converted for typ, into dst on every row.
func CopySQL(d Dialect, table, src, dst, typ string) (string, error) {
	qt, qs, err := quotePair(d, table, src)
	if err != nil {
		return "", err
	}
	qd, err := d.QuoteIdentifier(dst)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("UPDATE %s SET %s = %s", qt, qd, d.CopyExpr(qs, typ)), nil
}

// PairsSQL renders a SELECT projecting (a, b) for every row.
func PairsSQL(d Dialect, table, a, b string) (string, error) {
	qt, qa, err := quotePair(d, table, a)
	if err != nil {
		return "", err
	}
	qb, err := d.QuoteIdentifier(b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT %s, %s FROM %s", qa, qb, qt), nil
}

// CountSQL renders SELECT COUNT(*) over table, optionally filtered by where.
func CountSQL(d Dialect, table, where string) (string, error) {
	qt, err := d.QuoteIdentifier(table)
	if err != nil {
		return "", err
	}
	q := "SELECT COUNT(*) FROM " + qt
	if where != "" {
		q += " WHERE " + where
	}
	return q, nil
}

func quotePair(d Dialect, table, column string) (string, string, error) {
	qt, err := d.QuoteIdentifier(table)
	if err != nil {
		return "", "", fmt.Errorf("table: %w", err)
	}
	qc, err := d.QuoteIdentifier(column)
	if err != nil {
		return "", "", fmt.Errorf("column: %w", err)
	}
	return qt, qc, nil
}

func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ByName returns the built-in dialect called name.
func ByName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql":
		return MySQL{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", name)
	}
}
