// pkg/db/db.go
package db

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

const pingTimeout = 5 * time.Second

// Config holds database connection configuration.
type Config struct {
	Driver      string `default:"postgres"`
	Host        string `default:"localhost"`
	Port        int    `default:"5432"`
	User        string `default:"user"`
	Password    string `default:"password"`
	Name        string `default:"lendingdb"`
	SSLMode     string `default:"disable"`
	Path        string `default:"finflow-lending.db"` // SQLite file, ignored for postgres
	AutoMigrate bool   `split_words:"true" default:"false"`

	// Pool settings, postgres only.
	MaxOpenConns    int           `split_words:"true" default:"25"`
	MaxIdleConns    int           `split_words:"true" default:"10"`
	ConnMaxLifetime time.Duration `split_words:"true" default:"5m"`
}

// Open connects to the database selected by cfg.Driver and verifies the connection.
func Open(cfg Config) (*sqlx.DB, error) {
	switch cfg.Driver {
	case DriverPostgres, "":
		return connect(DriverPostgres, postgresDSN(cfg), pool{
			maxOpen:     cfg.MaxOpenConns,
			maxIdle:     cfg.MaxIdleConns,
			maxLifetime: cfg.ConnMaxLifetime,
		})
	case DriverSQLite:
		return NewSQLiteDB(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// postgresDSN renders cfg as a lib/pq connection URL with escaped credentials.
func postgresDSN(cfg Config) string {
	query := url.Values{}
	query.Set("sslmode", cfg.SSLMode)
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: query.Encode(),
	}
	return dsn.String()
}

type pool struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
}

// connect opens a pool for driver and pings it; the pool is closed again when
// the ping fails.
func connect(driver, dsn string, p pool) (*sqlx.DB, error) {
	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	conn.SetMaxOpenConns(p.maxOpen)
	conn.SetMaxIdleConns(p.maxIdle)
	conn.SetConnMaxLifetime(p.maxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}
	return conn, nil
}
