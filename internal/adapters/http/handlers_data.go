package web

import (
	"context"
	"net/http"

	"vitebridge/internal/adapters/storage"
	itemStore "vitebridge/internal/adapters/storage/item"
	salesStore "vitebridge/internal/adapters/storage/sales"
	"vitebridge/internal/application/orchestrators"
	"vitebridge/internal/application/projections"
)

// Messages returned by the init-db endpoint.
const (
	msgSeeded        = "Database initialized with sample data"
	msgAlreadySeeded = "Database already contains data"
)

// GET /api/data
func (a *App) handleListSales(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	points, err := salesStore.NewSQLiteStore(sess).List(r.Context())
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// POST /api/init-db
func (a *App) handleInitDB(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	seeded, err := orchestrators.ExecuteInitDB(r.Context(), orchestrators.InitDBDeps{
		EnsureSchema: func(ctx context.Context) error { return storage.EnsureSchema(ctx, sess) },
		ItemStore:    itemStore.NewSQLiteStore(sess),
		SalesStore:   salesStore.NewSQLiteStore(sess),
	})
	if err != nil {
		storeError(w, r, err)
		return
	}
	msg := msgAlreadySeeded
	if seeded {
		msg = msgSeeded
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// GET /api/status always answers 200; connectivity is reported in the body.
func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := projections.QueryGetStoreStatus(r.Context(), projections.GetStoreStatusDeps{
		Sessions: a.sessions,
		Timeout:  a.cfg.StatusProbeTimeout,
	})
	writeJSON(w, http.StatusOK, status)
}
