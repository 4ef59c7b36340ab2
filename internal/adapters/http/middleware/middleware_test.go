package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/api/items", nil))

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
}

func TestCORS_Wildcard(t *testing.T) {
	h := CORS([]string{"*"})(okHandler)
	req := httptest.NewRequest("GET", "/api/items", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ListedOrigin(t *testing.T) {
	h := CORS([]string{"http://a.test", " http://b.test "})(okHandler)

	tests := []struct {
		origin string
		want   string
	}{
		{origin: "http://a.test", want: "http://a.test"},
		{origin: "http://b.test", want: "http://b.test"},
		{origin: "http://evil.test", want: ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/api/items", nil)
		req.Header.Set("Origin", tt.origin)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, tt.want, rr.Header().Get("Access-Control-Allow-Origin"), tt.origin)
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	req := httptest.NewRequest(http.MethodOptions, "/api/items/1", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.False(t, called, "preflight must not reach the handler")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "PUT")
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
}

func TestEchoRequestID(t *testing.T) {
	h := Timing(nil, TimingOptions{APIPrefix: "/api/"})(EchoRequestID(okHandler))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/status", nil))
	assert.Len(t, rr.Header().Get(RequestIDHeader), 36)

	// Without Timing there is no id to echo.
	rr = httptest.NewRecorder()
	EchoRequestID(okHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/api/status", nil))
	assert.Empty(t, rr.Header().Get(RequestIDHeader))
}

func csrfHandler(t *testing.T) http.Handler {
	t.Helper()
	key := []byte(strings.Repeat("k", 32))
	reject := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"forbidden"}`))
	})
	return CSRF(key, nil, reject)(okHandler)
}

func TestCSRF_JSONExempt(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/items", strings.NewReader(`{"title":"a","description":"b"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rr := httptest.NewRecorder()
	csrfHandler(t).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCSRF_BodilessDeleteExempt(t *testing.T) {
	rr := httptest.NewRecorder()
	csrfHandler(t).ServeHTTP(rr, httptest.NewRequest("DELETE", "/api/items/1", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCSRF_FormPostRejected(t *testing.T) {
	for _, ct := range []string{
		"application/x-www-form-urlencoded",
		"multipart/form-data; boundary=x",
		"text/plain;charset=UTF-8",
	} {
		req := httptest.NewRequest("POST", "/api/init-db", strings.NewReader("a=b"))
		req.Header.Set("Content-Type", ct)
		rr := httptest.NewRecorder()
		csrfHandler(t).ServeHTTP(rr, req)
		require.Equal(t, http.StatusForbidden, rr.Code, ct)
	}
}

func TestChain_LastIsOutermost(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	Chain(okHandler, mark("inner"), mark("outer")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, []string{"outer", "inner"}, order)
}
