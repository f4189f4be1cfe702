// Package database opens the host database the optimizer works against.
//
// SQLite uses the pure Go modernc.org/sqlite driver by default. Build with
// -tags cgo_sqlite (CGO_ENABLED=1) to use github.com/mattn/go-sqlite3.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"

	defaultBusyTimeout = 5 * time.Second
)

// Options selects and configures a connection.
type Options struct {
	Driver      string
	Path        string
	DSN         string
	BusyTimeout time.Duration
}

// Open returns a verified connection pool for opts.
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case DriverSQLite, "sqlite3", "":
		return OpenSQLite(ctx, opts.Path, opts.BusyTimeout)
	case DriverMySQL:
		return openMySQL(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// OpenSQLite opens (or creates) the SQLite file at path in WAL mode.
func OpenSQLite(ctx context.Context, path string, busyTimeout time.Duration) (*sql.DB, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("sqlite path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("sqlite path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory %q: %w", dir, err)
		}
	}

	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}
	db, err := sql.Open(sqliteDriverName, sqliteDSN(cleanPath, busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", cleanPath, err)
	}
	// Schema changes and their verification must observe each other.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", cleanPath, err)
	}
	return db, nil
}

func openMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("mysql dsn must not be empty")
	}
	db, err := sql.Open(DriverMySQL, dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

// SQLiteDriver reports which SQLite implementation this binary uses.
func SQLiteDriver() string {
	return sqliteDriverPackage
}
