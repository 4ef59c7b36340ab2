package web

import "net/http"

func (a *App) registerRoutes(mux *http.ServeMux) {
	p := a.cfg.APIPrefix

	mux.HandleFunc("GET "+p+"items", a.handleListItems)
	mux.HandleFunc("POST "+p+"items", a.handleCreateItem)
	mux.HandleFunc("GET "+p+"items/{id}", a.handleGetItem)
	mux.HandleFunc("PUT "+p+"items/{id}", a.handleUpdateItem)
	mux.HandleFunc("DELETE "+p+"items/{id}", a.handleDeleteItem)
	mux.HandleFunc("GET "+p+"items/{id}/preview", a.handlePreviewItem)

	mux.HandleFunc("GET "+p+"data", a.handleListSales)
	mux.HandleFunc("POST "+p+"init-db", a.handleInitDB)
	mux.HandleFunc("GET "+p+"status", a.handleStatus)
}
