package browser_test

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	web "vitebridge/internal/adapters/http"
	"vitebridge/internal/adapters/http/perf"
	"vitebridge/internal/adapters/proxy"
	"vitebridge/internal/adapters/storage"
)

// testApp holds the running server, the fake dev server, and Playwright handles.
type testApp struct {
	BaseURL   string
	DB        *sql.DB
	Server    *http.Server
	DevServer *httptest.Server
	PW        *playwright.Playwright
	Browser   playwright.Browser
}

// newTestApp wires the real handler against a temp SQLite DB and a static
// stand-in for the Vite dev server, then starts a headless browser.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "browser.db"), 25)
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	if err := storage.EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	devServer := httptest.NewServer(http.FileServer(http.Dir("testdata/devserver")))

	upstream, err := proxy.New(devServer.URL, proxy.WithErrorWriter(web.WriteJSONError))
	if err != nil {
		t.Fatalf("failed to build proxy: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}

	collector := perf.NewCollector(1000)
	mux := web.NewMux(web.Config{
		MaxListLimit: 1000,
		CORSOrigins:  []string{"*"},
		CSRFKey:      make([]byte, 32),
	}, storage.NewSessions(db, collector, 0), upstream, collector)
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			log.Printf("test server error: %v", err)
		}
	}()

	baseURL := "http://" + listener.Addr().String()
	for i := 0; i < 50; i++ {
		resp, err := http.Get(baseURL + "/api/status")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	pw, err := playwright.Run()
	if err != nil {
		srv.Close()
		devServer.Close()
		db.Close()
		t.Skipf("playwright driver not available: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		pw.Stop()
		srv.Close()
		devServer.Close()
		db.Close()
		t.Skipf("chromium not available: %v", err)
	}

	app := &testApp{
		BaseURL:   baseURL,
		DB:        db,
		Server:    srv,
		DevServer: devServer,
		PW:        pw,
		Browser:   browser,
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
		upstream.Close()
		devServer.Close()
		db.Close()
	})

	return app
}

// newPage creates a new browser page (tab).
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

// initDB seeds sample rows through the API.
func (a *testApp) initDB(t *testing.T) {
	t.Helper()
	resp, err := http.Post(a.BaseURL+"/api/init-db", "application/json", nil)
	if err != nil {
		t.Fatalf("init-db: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("init-db status = %d", resp.StatusCode)
	}
}
