package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in and out of the API.
const RequestIDHeader = "X-Request-Id"

type ctxKey int

const ctxKeyRequest ctxKey = iota

// requestInfo is shared between Timing and the handlers below it.
// route is written at most once, by the handler that matched.
type requestInfo struct {
	id    string
	route string
}

func withRequestInfo(ctx context.Context, info *requestInfo) context.Context {
	return context.WithValue(ctx, ctxKeyRequest, info)
}

func infoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(ctxKeyRequest).(*requestInfo)
	return info
}

// RequestIDFromContext returns the id assigned by Timing, or "".
func RequestIDFromContext(ctx context.Context) string {
	if info := infoFrom(ctx); info != nil {
		return info.id
	}
	return ""
}

// SetRoute labels the request with the route pattern that served it.
// No-op when the request did not pass through Timing.
func SetRoute(ctx context.Context, route string) {
	if info := infoFrom(ctx); info != nil {
		info.route = route
	}
}

// newRequestID keeps a well-formed inbound id and mints one otherwise.
func newRequestID(inbound string) string {
	if inbound != "" {
		if _, err := uuid.Parse(inbound); err == nil {
			return inbound
		}
	}
	return uuid.NewString()
}

// EchoRequestID writes the request id onto the response.
func EchoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := RequestIDFromContext(r.Context()); id != "" {
			w.Header().Set(RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}
