package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"vitebridge/internal/adapters/http/perf"
)

// Sessions hands out request-scoped connections from one pool.
type Sessions struct {
	db          *sql.DB
	collector   *perf.Collector
	slowQueryMs float64
}

// NewSessions wraps a pool. collector may be nil.
func NewSessions(db *sql.DB, collector *perf.Collector, slowQueryMs int) *Sessions {
	if slowQueryMs <= 0 {
		slowQueryMs = DefaultSlowQueryMs
	}
	return &Sessions{db: db, collector: collector, slowQueryMs: float64(slowQueryMs)}
}

// Acquire takes one connection for the lifetime of a single request.
// The caller must defer Release on the returned session.
// PRE: ctx is the request context
// POST: returns a live session, or an error wrapping ErrUnavailable
func (s *Sessions) Acquire(ctx context.Context) (*Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return &Session{
		TimedDB: NewTimedDB(conn, s.collector, s.slowQueryMs),
		conn:    conn,
	}, nil
}

// Session is one pooled connection. It satisfies SQLDB through the embedded TimedDB.
type Session struct {
	*TimedDB
	conn *sql.Conn

	once       sync.Once
	releaseErr error
}

// Ping checks that the connection is usable.
func (s *Session) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Release returns the connection to the pool. Safe to call more than once;
// only the first call has an effect.
func (s *Session) Release() error {
	s.once.Do(func() {
		s.releaseErr = s.conn.Close()
	})
	return s.releaseErr
}
