package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultDialTimeout bounds connecting to the dev server.
const DefaultDialTimeout = 5 * time.Second

// chunkSize is the read size when streaming upstream bodies.
const chunkSize = 32 * 1024

// hopHeaders apply to a single connection and are not relayed.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Connection",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// ErrorWriter writes the 502 body when the upstream cannot be reached.
type ErrorWriter func(w http.ResponseWriter, status int, code, details string)

// Proxy forwards GET requests to one upstream origin over a long-lived client.
type Proxy struct {
	origin    *url.URL
	client    *http.Client
	transport *http.Transport
	onError   ErrorWriter
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithErrorWriter replaces the plain-text 502 body.
func WithErrorWriter(fn ErrorWriter) Option {
	return func(p *Proxy) { p.onError = fn }
}

// WithTransport supplies the transport. Compression is forced off on it.
func WithTransport(t *http.Transport) Option {
	return func(p *Proxy) { p.transport = t }
}

// New builds a proxy bound to origin (scheme://host[:port]).
// PRE: origin is an absolute http or https URL
// POST: returns a proxy whose client never decompresses and never follows redirects
func New(origin string, opts ...Option) (*Proxy, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse upstream origin: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("upstream origin %q must be http(s)://host[:port]", origin)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""

	p := &Proxy{origin: u}
	for _, opt := range opts {
		opt(p)
	}
	if p.transport == nil {
		p.transport = &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DefaultDialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 32,
			IdleConnTimeout:     90 * time.Second,
		}
	}
	p.transport.DisableCompression = true
	p.client = &http.Client{
		Transport: p.transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	if p.onError == nil {
		p.onError = func(w http.ResponseWriter, status int, code, details string) {
			http.Error(w, code+": "+details, status)
		}
	}
	return p, nil
}

// Origin returns the upstream origin the proxy forwards to.
func (p *Proxy) Origin() string {
	return p.origin.String()
}

// Target builds the upstream URL for an inbound request URL.
// An empty path maps to "/"; the raw query is carried verbatim.
func (p *Proxy) Target(in *url.URL) string {
	target := *p.origin
	path := in.EscapedPath()
	if path == "" {
		path = "/"
	}
	if err := setEscapedPath(&target, p.origin.EscapedPath()+path); err != nil {
		target.Path = p.origin.Path + in.Path
	}
	target.RawQuery = in.RawQuery
	return target.String()
}

func setEscapedPath(u *url.URL, escaped string) error {
	unescaped, err := url.PathUnescape(escaped)
	if err != nil {
		return err
	}
	u.Path = unescaped
	u.RawPath = escaped
	return nil
}

// ServeHTTP relays a GET to the upstream and streams the response back.
// Inbound headers, cookies and credentials are not forwarded.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		p.onError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not proxied")
		return
	}

	target := p.Target(r.URL)
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		slog.Error("proxy_error", "stage", "build_request", "target", target, "error", err)
		p.onError(w, http.StatusBadGateway, "upstream_unavailable", "invalid upstream request")
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if isCanceled(r.Context(), err) {
			slog.Debug("proxy_canceled", "target", target)
			return
		}
		slog.Warn("proxy_error", "stage", "round_trip", "target", target, "error", err)
		p.onError(w, http.StatusBadGateway, "upstream_unavailable", "front-end dev server is not reachable")
		return
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	n, err := stream(w, resp.Body)
	if err != nil && !isCanceled(r.Context(), err) {
		slog.Warn("proxy_error", "stage", "stream", "target", target, "bytes", n, "error", err)
	}
}

// Close releases idle upstream connections.
func (p *Proxy) Close() {
	p.client.CloseIdleConnections()
}

func copyHeaders(dst, src http.Header) {
	for k, vv := range src {
		dst[k] = append([]string(nil), vv...)
	}
	for _, h := range hopHeaders {
		dst.Del(h)
	}
}

// stream copies body to w, flushing after every chunk.
func stream(w http.ResponseWriter, body io.Reader) (int64, error) {
	rc := http.NewResponseController(w)
	buf := make([]byte, chunkSize)
	var total int64
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			written, werr := w.Write(buf[:n])
			total += int64(written)
			if werr != nil {
				return total, werr
			}
			if ferr := rc.Flush(); ferr != nil && !errors.Is(ferr, http.ErrNotSupported) {
				return total, ferr
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

func isCanceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}
