package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// defaultPragmas match the WAL setup used for every pooled connection.
const defaultPragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"

// ErrUnavailable marks failures to reach the store at all, as opposed to
// failures of a single statement.
var ErrUnavailable = errors.New("store unavailable")

// DSN converts a DATABASE_URL value into a driver DSN.
// Accepts plain paths, "sqlite://path" URLs and "file:" URIs.
// PRE: none
// POST: returns a DSN with the default pragmas unless the caller set their own
func DSN(databaseURL string) string {
	dsn := strings.TrimSpace(databaseURL)
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	case strings.HasPrefix(dsn, "sqlite:"):
		dsn = strings.TrimPrefix(dsn, "sqlite:")
	}
	if dsn == "" || strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + defaultPragmas
	}
	return dsn + "?" + defaultPragmas
}

// Open creates the connection pool for databaseURL.
// It does not connect: an unreachable store is reported per request.
// PRE: maxOpen > 0
// POST: returns a pool limited to maxOpen connections
func Open(databaseURL string, maxOpen int) (*sql.DB, error) {
	dsn := DSN(databaseURL)
	if dsn == "" {
		return nil, errors.New("database url is empty")
	}
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	return db, nil
}

// schema creates the tables if they are missing. It never drops or alters.
const schema = `
	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sales_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		month TEXT NOT NULL,
		sales REAL NOT NULL,
		revenue REAL NOT NULL
	);
	`

// EnsureSchema creates all tables that do not exist yet.
// PRE: q is a live session or pool
// POST: items and sales_data exist; existing rows are untouched
func EnsureSchema(ctx context.Context, q SQLDB) error {
	if _, err := q.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
