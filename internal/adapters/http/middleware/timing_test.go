package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vitebridge/internal/adapters/http/perf"
)

func apiTiming(c *perf.Collector) func(http.Handler) http.Handler {
	return Timing(c, TimingOptions{APIPrefix: "/api/"})
}

// TestTimingMiddleware_ClassifiesAPIAndProxy verifies entries are split by prefix.
func TestTimingMiddleware_ClassifiesAPIAndProxy(t *testing.T) {
	collector := perf.NewCollector(100)
	handler := apiTiming(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/api/items", "/", "/src/main.ts"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}

	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	if snap.APIRequests != 1 {
		t.Errorf("APIRequests = %d, want 1", snap.APIRequests)
	}
	if snap.ProxiedRequests != 2 {
		t.Errorf("ProxiedRequests = %d, want 2", snap.ProxiedRequests)
	}
}

// TestTimingMiddleware_RouteLabel verifies the route set by the handler is recorded.
func TestTimingMiddleware_RouteLabel(t *testing.T) {
	collector := perf.NewCollector(10)
	handler := apiTiming(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetRoute(r.Context(), "GET /api/items/{id}")
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/items/3", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/items/4", nil))

	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	if len(snap.SlowestRoutes) != 1 {
		t.Fatalf("SlowestRoutes len = %d, want 1", len(snap.SlowestRoutes))
	}
	if snap.SlowestRoutes[0].Route != "GET /api/items/{id}" || snap.SlowestRoutes[0].Count != 2 {
		t.Errorf("route stat = %+v", snap.SlowestRoutes[0])
	}
}

// TestTimingMiddleware_UnmatchedRoute verifies API requests without a label are grouped.
func TestTimingMiddleware_UnmatchedRoute(t *testing.T) {
	collector := perf.NewCollector(10)
	handler := apiTiming(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/nope", nil))

	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	if len(snap.SlowestRoutes) != 1 || snap.SlowestRoutes[0].Route != "unmatched" {
		t.Errorf("routes = %+v, want one unmatched", snap.SlowestRoutes)
	}
}

// TestTimingMiddleware_UpstreamFailure verifies 5xx proxied responses count as failures.
func TestTimingMiddleware_UpstreamFailure(t *testing.T) {
	collector := perf.NewCollector(10)
	handler := apiTiming(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/about", nil))

	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	if snap.UpstreamFailures != 1 {
		t.Errorf("UpstreamFailures = %d, want 1", snap.UpstreamFailures)
	}
}

// TestTimingMiddleware_RequestID verifies a uuid is assigned and an inbound one is kept.
func TestTimingMiddleware_RequestID(t *testing.T) {
	var seen string
	handler := apiTiming(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/status", nil))
	if len(seen) != 36 {
		t.Errorf("generated id = %q, want a uuid", seen)
	}

	const inbound = "7b0c3f0e-9d52-4a53-9d0b-5b7a1f6f2d11"
	req := httptest.NewRequest("GET", "/api/status", nil)
	req.Header.Set(RequestIDHeader, inbound)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != inbound {
		t.Errorf("id = %q, want inbound %q", seen, inbound)
	}

	req = httptest.NewRequest("GET", "/api/status", nil)
	req.Header.Set(RequestIDHeader, "not a uuid\r\n")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "not a uuid\r\n" || len(seen) != 36 {
		t.Errorf("malformed inbound id should be replaced, got %q", seen)
	}
}

// TestTimingMiddleware_HandlerPanic verifies the deferred timing logic still runs
// when the handler panics.
func TestTimingMiddleware_HandlerPanic(t *testing.T) {
	collector := perf.NewCollector(100)
	handler := apiTiming(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic to propagate, got nil")
		}
		if collector.TotalRecorded() != 1 {
			t.Errorf("TotalRecorded = %d, want 1 (defer must run even on panic)", collector.TotalRecorded())
		}
	}()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/panic", nil))
}

// TestTimingMiddleware_PoolNoStateLeak verifies that statusWriter pool reuse
// does not leak status codes between requests.
func TestTimingMiddleware_PoolNoStateLeak(t *testing.T) {
	collector := perf.NewCollector(100)

	handler500 := apiTiming(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	rr1 := httptest.NewRecorder()
	handler500.ServeHTTP(rr1, httptest.NewRequest("GET", "/api/fail", nil))
	if rr1.Code != 500 {
		t.Errorf("request 1 status = %d, want 500", rr1.Code)
	}

	handler200 := apiTiming(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	rr2 := httptest.NewRecorder()
	handler200.ServeHTTP(rr2, httptest.NewRequest("GET", "/api/ok", nil))
	if rr2.Code != 200 {
		t.Errorf("request 2 status = %d, want 200 (pool must not leak 500)", rr2.Code)
	}
}

// TestTimingMiddleware_FlushPassesThrough verifies streaming handlers can flush
// through the wrapped writer.
func TestTimingMiddleware_FlushPassesThrough(t *testing.T) {
	handler := apiTiming(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("chunk"))
		if err := http.NewResponseController(w).Flush(); err != nil {
			t.Errorf("Flush: %v", err)
		}
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if !rr.Flushed {
		t.Error("expected recorder to be flushed")
	}
}

// BenchmarkTimingMiddleware measures per-request overhead.
func BenchmarkTimingMiddleware(b *testing.B) {
	collector := perf.NewCollector(perf.DefaultRingSize)
	handler := apiTiming(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest("GET", "/api/items", nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
