package web

import (
	"net/http"
	"strings"
	"time"

	"vitebridge/internal/adapters/http/middleware"
	"vitebridge/internal/adapters/http/perf"
	"vitebridge/internal/adapters/storage"
)

// DefaultAPIPrefix is the path prefix served by the API; everything else is proxied.
const DefaultAPIPrefix = "/api/"

// Config holds what the HTTP layer needs from the application config.
type Config struct {
	APIPrefix          string
	MaxListLimit       int
	CORSOrigins        []string
	CSRFKey            []byte
	TrustedOrigins     []string
	SlowRequestMs      int
	StatusProbeTimeout time.Duration
}

// App carries the dependencies shared by all API handlers.
type App struct {
	cfg      Config
	sessions *storage.Sessions
}

// NewMux wires the API routes and the proxy fallback behind one handler.
// PRE: cfg.CSRFKey is 32 bytes; sessions and upstream are non-nil
// POST: paths under cfg.APIPrefix are served by the API (never proxied);
// all other paths go to upstream unchanged
func NewMux(cfg Config, sessions *storage.Sessions, upstream http.Handler, collector *perf.Collector) http.Handler {
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = DefaultAPIPrefix
	}
	app := &App{cfg: cfg, sessions: sessions}

	mux := http.NewServeMux()
	app.registerRoutes(mux)

	csrfFailure := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusForbidden, codeForbidden, "cross-site form submission rejected")
	})

	// API: Timing -> EchoRequestID -> CORS -> SecurityHeaders -> CSRF -> routes
	api := middleware.Chain(app.routeAPI(mux),
		middleware.CSRF(cfg.CSRFKey, cfg.TrustedOrigins, csrfFailure),
		middleware.SecurityHeaders,
		middleware.CORS(cfg.CORSOrigins),
		middleware.EchoRequestID,
	)

	return middleware.Chain(dispatch(cfg.APIPrefix, api, upstream),
		middleware.Timing(collector, middleware.TimingOptions{
			SlowRequestMs: cfg.SlowRequestMs,
			APIPrefix:     cfg.APIPrefix,
		}),
	)
}

// dispatch sends paths under prefix to api and everything else to upstream.
func dispatch(prefix string, api, upstream http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, prefix) {
			api.ServeHTTP(w, r)
			return
		}
		upstream.ServeHTTP(w, r)
	})
}

// routeAPI labels matched requests with their route pattern and turns the
// mux's plain-text 404/405 replies into JSON errors.
func (a *App) routeAPI(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := mux.Handler(r)
		if pattern == "" {
			h.ServeHTTP(&fallbackWriter{ResponseWriter: w}, r)
			return
		}
		middleware.SetRoute(r.Context(), pattern)
		mux.ServeHTTP(w, r)
	})
}

// fallbackWriter rewrites the mux's own 404 and 405 bodies as JSON.
// Other statuses (e.g. path-cleaning redirects) pass through.
type fallbackWriter struct {
	http.ResponseWriter
	replaced bool
}

func (fw *fallbackWriter) WriteHeader(code int) {
	switch code {
	case http.StatusNotFound:
		fw.replaced = true
		writeError(fw.ResponseWriter, code, codeNotFound, "no API route for this path")
	case http.StatusMethodNotAllowed:
		fw.replaced = true
		writeError(fw.ResponseWriter, code, codeMethodNotAllowed, "method not allowed; see the Allow header")
	default:
		fw.ResponseWriter.WriteHeader(code)
	}
}

func (fw *fallbackWriter) Write(b []byte) (int, error) {
	if fw.replaced {
		return len(b), nil
	}
	return fw.ResponseWriter.Write(b)
}
