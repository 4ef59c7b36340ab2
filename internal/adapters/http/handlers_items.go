package web

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"vitebridge/internal/adapters/storage"
	itemStore "vitebridge/internal/adapters/storage/item"
	"vitebridge/internal/application/listutil"
	"vitebridge/internal/domain/item"
)

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var previewTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body><article data-item-id="{{.ID}}"><h1>{{.Title}}</h1>
{{.Body}}</article></body></html>
`))

// acquire takes a request-scoped session, writing a 503 when none is available.
// The caller must defer Release when ok is true.
func (a *App) acquire(w http.ResponseWriter, r *http.Request) (*storage.Session, bool) {
	sess, err := a.sessions.Acquire(r.Context())
	if err != nil {
		storeError(w, r, err)
		return nil, false
	}
	return sess, true
}

// pathID parses the {id} wildcard, writing a 422 when it is not an integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		validationError(w, fmt.Errorf("path parameter \"id\" must be an integer, got %q", raw))
		return 0, false
	}
	return id, true
}

// GET /api/items?skip=&limit=
func (a *App) handleListItems(w http.ResponseWriter, r *http.Request) {
	params, err := listutil.ParseOffsetParams(r.URL.Query(), a.cfg.MaxListLimit)
	if err != nil {
		validationError(w, err)
		return
	}

	sess, ok := a.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	items, err := itemStore.NewSQLiteStore(sess).List(r.Context(), itemStore.ListFilter{
		Offset: params.Skip,
		Limit:  params.Limit,
	})
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// POST /api/items
func (a *App) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	in, err := decodeItemInput(w, r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	sess, ok := a.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	created, err := itemStore.NewSQLiteStore(sess).Create(r.Context(), in)
	if err != nil {
		storeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("%sitems/%d", a.cfg.APIPrefix, created.ID))
	writeJSON(w, http.StatusCreated, created)
}

// GET /api/items/{id}
func (a *App) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sess, ok := a.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	it, err := itemStore.NewSQLiteStore(sess).GetByID(r.Context(), id)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// PUT /api/items/{id}
func (a *App) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, err := decodeItemInput(w, r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	sess, ok := a.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	updated, err := itemStore.NewSQLiteStore(sess).Update(r.Context(), id, in)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DELETE /api/items/{id}
func (a *App) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sess, ok := a.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	if err := itemStore.NewSQLiteStore(sess).Delete(r.Context(), id); err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Item deleted successfully"})
}

// GET /api/items/{id}/preview renders the description as HTML.
func (a *App) handlePreviewItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sess, ok := a.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	it, err := itemStore.NewSQLiteStore(sess).GetByID(r.Context(), id)
	if err != nil {
		storeError(w, r, err)
		return
	}
	sess.Release()

	html, err := renderItemHTML(it)
	if err != nil {
		internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(html)
}

func renderItemHTML(it item.Item) ([]byte, error) {
	var body bytes.Buffer
	if err := mdRenderer.Convert([]byte(it.Description), &body); err != nil {
		return nil, fmt.Errorf("render markdown for item %d: %w", it.ID, err)
	}
	var page bytes.Buffer
	err := previewTemplate.Execute(&page, map[string]any{
		"ID":    it.ID,
		"Title": it.Title,
		"Body":  template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("render preview page for item %d: %w", it.ID, err)
	}
	return page.Bytes(), nil
}
