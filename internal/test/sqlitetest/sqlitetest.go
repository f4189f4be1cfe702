// Package sqlitetest provides throwaway SQLite databases for tests.
package sqlitetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"schematune/internal/data/database"
	"schematune/internal/data/sqladapter"
)

// Open returns a fresh database file under t.TempDir and an adapter over it.
func Open(t *testing.T) (*sql.DB, *sqladapter.Adapter) {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"), time.Second)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, sqladapter.New(db)
}

// Exec runs each statement, failing the test on error.
func Exec(t *testing.T, db *sql.DB, stmts ...string) {
	t.Helper()
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
}

// Columns returns column name -> declared type for table.
func Columns(t *testing.T, db *sql.DB, table string) map[string]string {
	t.Helper()
	rows, err := db.Query(`SELECT name, type FROM pragma_table_info(?)`, table)
	if err != nil {
		t.Fatalf("list columns of %s: %v", table, err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			t.Fatalf("scan column: %v", err)
		}
		out[name] = typ
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate columns: %v", err)
	}
	return out
}

// Texts returns the text form of column for every row ordered by id.
func Texts(t *testing.T, db *sql.DB, table, column string) []sql.NullString {
	t.Helper()
	rows, err := db.Query(`SELECT CAST("` + column + `" AS TEXT) FROM "` + table + `" ORDER BY id`)
	if err != nil {
		t.Fatalf("select %s.%s: %v", table, column, err)
	}
	defer rows.Close()
	var out []sql.NullString
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			t.Fatalf("scan: %v", err)
		}
		out = append(out, v)
	}
	return out
}
