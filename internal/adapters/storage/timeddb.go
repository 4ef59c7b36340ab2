package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"vitebridge/internal/adapters/http/perf"
)

// SQLDB is the database interface used by all stores.
// *sql.DB, *sql.Conn, *TimedDB and *Session satisfy it.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var (
	_ SQLDB = (*sql.DB)(nil)
	_ SQLDB = (*sql.Conn)(nil)
)

// DefaultSlowQueryMs is the default threshold for slow query warnings.
const DefaultSlowQueryMs = 50

// TimedDB wraps an SQLDB to log slow queries and optionally record to a collector.
type TimedDB struct {
	db        SQLDB
	collector *perf.Collector
	threshold float64
}

var _ SQLDB = (*TimedDB)(nil)

// NewTimedDB wraps db with timing instrumentation.
// PRE: db is a valid connection or pool; thresholdMs > 0
// POST: Returns a TimedDB that logs slow queries and records to collector
func NewTimedDB(db SQLDB, collector *perf.Collector, thresholdMs float64) *TimedDB {
	return &TimedDB{
		db:        db,
		collector: collector,
		threshold: thresholdMs,
	}
}

// logQuery logs and optionally records a query timing.
func (t *TimedDB) logQuery(op string, start time.Time, err error) {
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0

	if durationMs >= t.threshold {
		slog.Warn("slow_query",
			"op", op,
			"duration_ms", durationMs,
			"failed", err != nil,
		)
	} else {
		slog.Debug("query",
			"op", op,
			"duration_ms", durationMs,
			"failed", err != nil,
		)
	}

	if t.collector != nil {
		t.collector.Record(perf.Entry{
			Kind:       perf.KindQuery,
			Route:      op,
			Failed:     err != nil,
			DurationMs: durationMs,
			At:         start,
		})
	}
}

// ExecContext wraps ExecContext with timing.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	t.logQuery("ExecContext", start, err)
	return result, err
}

// QueryContext wraps QueryContext with timing.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.logQuery("QueryContext", start, err)
	return rows, err
}

// QueryRowContext wraps QueryRowContext with timing.
// Errors surface on Scan, so the entry is always recorded as successful.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := t.db.QueryRowContext(ctx, query, args...)
	t.logQuery("QueryRowContext", start, nil)
	return row
}

// BeginTx wraps BeginTx with timing.
func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	start := time.Now()
	tx, err := t.db.BeginTx(ctx, opts)
	t.logQuery("BeginTx", start, err)
	return tx, err
}
