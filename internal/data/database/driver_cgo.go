//go:build cgo_sqlite

package database

import (
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // CGO SQLite driver.
)

const (
	sqliteDriverName    = "sqlite3"
	sqliteDriverPackage = "github.com/mattn/go-sqlite3"
)

func sqliteDSN(path string, busyTimeout time.Duration) string {
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on",
		path, busyTimeout.Milliseconds())
}
