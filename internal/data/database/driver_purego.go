//go:build !cgo_sqlite

package database

import (
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver.
)

const (
	sqliteDriverName    = "sqlite"
	sqliteDriverPackage = "modernc.org/sqlite"
)

func sqliteDSN(path string, busyTimeout time.Duration) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		path, busyTimeout.Milliseconds())
}
