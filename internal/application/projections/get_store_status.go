package projections

import (
	"context"
	"log/slog"
	"time"

	"vitebridge/internal/adapters/storage"
)

// DefaultStatusProbeTimeout bounds a single connectivity probe.
const DefaultStatusProbeTimeout = 2 * time.Second

// StoreStatus reports whether the relational store answered a probe.
type StoreStatus struct {
	Connected bool   `json:"connected"`
	Message   string `json:"message"`
}

// SessionSourceForStatus is satisfied by *storage.Sessions.
type SessionSourceForStatus interface {
	Acquire(ctx context.Context) (*storage.Session, error)
}

// GetStoreStatusDeps holds dependencies for the GetStoreStatus query.
type GetStoreStatusDeps struct {
	Sessions SessionSourceForStatus
	Timeout  time.Duration
}

// QueryGetStoreStatus probes the store with a trivial query.
// PRE: deps.Sessions is non-nil
// POST: never fails; an unreachable store is reported as Connected=false
// with the underlying error text as Message
func QueryGetStoreStatus(ctx context.Context, deps GetStoreStatusDeps) StoreStatus {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = DefaultStatusProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sess, err := deps.Sessions.Acquire(ctx)
	if err != nil {
		return disconnected(err)
	}
	defer sess.Release()

	var one int
	if err := sess.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return disconnected(err)
	}
	return StoreStatus{Connected: true, Message: "Database connection successful"}
}

func disconnected(err error) StoreStatus {
	slog.Warn("store_probe_failed", "error", err)
	return StoreStatus{Connected: false, Message: err.Error()}
}
