package dialect

import (
	"context"
	"fmt"
	"strings"

	"schematune/internal/core/ports"
	"schematune/internal/engine/pattern"
	"schematune/internal/engine/rank"
	"schematune/internal/engine/value"
)

// MySQL targets MySQL 5.7+ and MariaDB. The server converts values on
// assignment, so copies are plain column references. A lossy narrowing is
// caught by the shadow diff and Retype runs in strict mode.
type MySQL struct{}

var mysqlDeclared = map[string]rank.Rank{
	"tinyint(1)":          rank.Bool,
	"tinyint(1) unsigned": rank.Bool,
	"tinyint(3) unsigned": rank.UInt8,
	"tinyint unsigned":    rank.UInt8,
	"int(11) unsigned":    rank.UInt32,
	"int(10) unsigned":    rank.UInt32,
	"int unsigned":        rank.UInt32,
	"double":              rank.Double,
	"varchar(255)":        rank.Text8,
	"text":                rank.Text16,
	"longtext":            rank.Text32,
}

func (MySQL) Name() string { return "mysql" }

func (MySQL) QuoteIdentifier(raw string) (string, error) {
	return quoteWith(raw, "`")
}

func (MySQL) ColumnsQuery(table string) (string, []any) {
	return `SELECT COLUMN_NAME, COLUMN_TYPE FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`, []any{table}
}

func (MySQL) ConcreteType(r rank.Rank) (string, bool) {
	typ, ok := mysqlTypes[r]
	return typ, ok
}

func (MySQL) DeclaredRank(typ string) rank.Rank {
	if r, ok := mysqlDeclared[NormalizeType(typ)]; ok {
		return r
	}
	return rank.Specified
}

func (MySQL) CopyExpr(quotedColumn, _ string) string {
	return quotedColumn
}

func (MySQL) MatchPredicate(quotedColumn string, shape pattern.Shape) (string, error) {
	if shape.ERE == "" {
		return "", fmt.Errorf("mysql: pattern has no regular expression")
	}
	ere := strings.ReplaceAll(shape.ERE, `\`, `\\`)
	return fmt.Sprintf("%s REGEXP %s", quotedColumn, sqlString(ere)), nil
}

// strictMode adds STRICT_ALL_TABLES to the session's sql_mode. CONCAT_WS
// skips the empty mode so no leading comma is produced.
const strictMode = `SET SESSION sql_mode = CONCAT_WS(',', NULLIF(@@SESSION.sql_mode, ''), 'STRICT_ALL_TABLES')`

// Retype issues ALTER TABLE ... CHANGE on one connection with strict mode
// forced for the statement, so a value the new type cannot hold fails the
// ALTER instead of being converted with a warning. The session's previous
// sql_mode is restored afterwards.
func (d MySQL) Retype(ctx context.Context, a ports.Adapter, table, column, typ string) error {
	qt, qc, err := quotePair(d, table, column)
	if err != nil {
		return err
	}
	if err := CheckType(typ); err != nil {
		return err
	}
	alter := fmt.Sprintf("ALTER TABLE %s CHANGE %s %s %s", qt, qc, qc, typ)

	return a.InTx(ctx, func(tx ports.Adapter) error {
		mode, err := tx.QueryScalar(ctx, "SELECT @@SESSION.sql_mode")
		if err != nil {
			return fmt.Errorf("read sql_mode: %w", err)
		}
		prev, _ := value.Text(mode)
		if err := tx.Execute(ctx, strictMode); err != nil {
			return fmt.Errorf("enable strict mode: %w", err)
		}
		alterErr := tx.Execute(ctx, alter)
		if err := tx.Execute(context.WithoutCancel(ctx), "SET SESSION sql_mode = ?", prev); err != nil && alterErr == nil {
			return fmt.Errorf("restore sql_mode: %w", err)
		}
		return alterErr
	})
}
