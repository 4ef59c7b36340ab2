package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"vitebridge/internal/adapters/http/perf"
)

// DefaultSlowRequestMs is the default threshold for slow request warnings.
const DefaultSlowRequestMs = 200

// TimingOptions configures Timing.
type TimingOptions struct {
	SlowRequestMs int    // <= 0 uses DefaultSlowRequestMs
	APIPrefix     string // requests under this prefix are recorded as API calls, the rest as proxied
}

// statusWriter wraps http.ResponseWriter to capture the status code and body size.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

// WriteHeader captures the status code and delegates to the underlying ResponseWriter.
// PRE: code is a valid HTTP status code
// POST: status stored, header written to underlying ResponseWriter
func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	n, err := sw.ResponseWriter.Write(b)
	sw.bytes += int64(n)
	return n, err
}

// Flush forwards to the underlying writer so streamed responses are not held back.
func (sw *statusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// statusWriterPool reduces allocations on the hot path.
var statusWriterPool = sync.Pool{
	New: func() any {
		return &statusWriter{}
	},
}

// Timing returns middleware that assigns a request id and logs request duration.
// Normal requests log at DEBUG; slow requests (at or above threshold) log at WARN.
// If collector is non-nil, entries are recorded for the shutdown summary.
func Timing(collector *perf.Collector, opts TimingOptions) func(http.Handler) http.Handler {
	threshold := float64(opts.SlowRequestMs)
	if threshold <= 0 {
		threshold = DefaultSlowRequestMs
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := r.URL.Path
			info := &requestInfo{id: newRequestID(r.Header.Get(RequestIDHeader))}
			r = r.WithContext(withRequestInfo(r.Context(), info))

			sw := statusWriterPool.Get().(*statusWriter)
			sw.ResponseWriter = w
			sw.status = http.StatusOK
			sw.bytes = 0
			defer func() {
				durationMs := float64(time.Since(start).Microseconds()) / 1000.0
				kind := perf.KindProxy
				route := "proxy"
				if opts.APIPrefix != "" && strings.HasPrefix(path, opts.APIPrefix) {
					kind = perf.KindAPI
					route = info.route
					if route == "" {
						route = "unmatched"
					}
				}

				attrs := []any{
					"request_id", info.id,
					"kind", kind.String(),
					"method", r.Method,
					"path", path,
					"status", sw.status,
					"bytes", sw.bytes,
					"duration_ms", durationMs,
				}
				if durationMs >= threshold {
					slog.Warn("slow_request", attrs...)
				} else {
					slog.Debug("request", attrs...)
				}

				if collector != nil {
					collector.Record(perf.Entry{
						Kind:       kind,
						Route:      route,
						Status:     sw.status,
						Failed:     sw.status >= http.StatusInternalServerError,
						DurationMs: durationMs,
						At:         start,
					})
				}

				sw.ResponseWriter = nil
				statusWriterPool.Put(sw)
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
