package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names as registered with database/sql
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// sqlitePrefix marks a database URL as a SQLite file path, e.g.
// sqlite:reports.db or sqlite::memory:
const sqlitePrefix = "sqlite:"

// Connect opens a connection pool for url. Postgres URLs go to lib/pq;
// sqlite: URLs open a SQLite file with a single writer connection.
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	if path, ok := strings.CutPrefix(url, sqlitePrefix); ok {
		return connectSQLite(ctx, path)
	}

	db, err := sqlx.ConnectContext(ctx, DriverPostgres, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

func connectSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	path = strings.TrimPrefix(path, "//")
	if path == "" {
		return nil, fmt.Errorf("sqlite URL has no path")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_foreign_keys=on&_busy_timeout=5000"

	db, err := sqlx.ConnectContext(ctx, DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection: SQLite has a single writer, and :memory: databases
	// exist per connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}
