// pkg/db/sqlite.go
package db

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// sqliteDSNOptions turns on foreign keys and WAL, takes the write lock at BEGIN
// so concurrent units of work queue on busy_timeout instead of deadlocking on upgrade.
const sqliteDSNOptions = "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"

// NewSQLiteDB opens (creating if needed) the SQLite database file at path.
func NewSQLiteDB(path string) (*sqlx.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: database path is empty")
	}
	conn, err := connect(DriverSQLite, fmt.Sprintf("file:%s?%s", path, sqliteDSNOptions), pool{
		maxOpen:     8,
		maxIdle:     8,
		maxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite %q: %w", path, err)
	}
	return conn, nil
}
