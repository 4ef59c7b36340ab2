package perf

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 10000

// EntryKind distinguishes where a timing came from.
type EntryKind uint8

const (
	KindAPI EntryKind = iota
	KindProxy
	KindQuery
)

func (k EntryKind) String() string {
	switch k {
	case KindAPI:
		return "api"
	case KindProxy:
		return "proxy"
	case KindQuery:
		return "query"
	}
	return "unknown"
}

// Entry is a single timing record stored in the ring buffer.
type Entry struct {
	Kind       EntryKind
	Route      string // mux pattern, "proxy", or SQL operation name
	Status     int    // HTTP status (0 for queries)
	Failed     bool
	DurationMs float64
	At         time.Time
}

// Collector is a fixed-size ring buffer of timing entries.
// When full the oldest entries are overwritten; aggregation happens on read.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	pos     int
	count   atomic.Int64
	started time.Time
}

// NewCollector creates a collector with the given ring buffer capacity.
// PRE: size > 0, or <= 0 for DefaultRingSize
// POST: returns a ready-to-use collector with pre-allocated storage
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{
		entries: make([]Entry, size),
		started: time.Now(),
	}
}

// Record appends an entry, overwriting the oldest one when the buffer is full.
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % len(c.entries)
	c.mu.Unlock()
	c.count.Add(1)
}

// TotalRecorded returns the number of entries ever recorded, of any kind.
func (c *Collector) TotalRecorded() int64 {
	return c.count.Load()
}

// Snapshot holds aggregated timings computed on read.
type Snapshot struct {
	APIRequests      int
	ProxiedRequests  int
	UpstreamFailures int
	Queries          int
	QueryFailures    int
	APIP50Ms         float64
	APIP95Ms         float64
	APIP99Ms         float64
	SlowestRoutes    []RouteStat
	SlowestQueries   []RouteStat
}

// RouteStat aggregates timing for one route or SQL operation.
type RouteStat struct {
	Route   string
	Count   int
	AvgMs   float64
	MaxMs   float64
	TotalMs float64
}

// Snapshot aggregates entries recorded at or after since.
// Only entries still in the ring are considered.
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := make([]Entry, len(c.entries))
	copy(buf, c.entries)
	c.mu.Unlock()

	var (
		snap      Snapshot
		durations []float64
		routes    = make(map[string]*RouteStat)
		queries   = make(map[string]*RouteStat)
	)

	for _, e := range buf {
		if e.At.IsZero() || e.At.Before(since) {
			continue
		}
		switch e.Kind {
		case KindAPI:
			snap.APIRequests++
			durations = append(durations, e.DurationMs)
			accumulate(routes, e)
		case KindProxy:
			snap.ProxiedRequests++
			if e.Failed {
				snap.UpstreamFailures++
			}
		case KindQuery:
			snap.Queries++
			if e.Failed {
				snap.QueryFailures++
			}
			accumulate(queries, e)
		}
	}

	snap.SlowestRoutes = topByAvg(routes, topN)
	snap.SlowestQueries = topByAvg(queries, topN)

	if len(durations) > 0 {
		sort.Float64s(durations)
		snap.APIP50Ms = percentile(durations, 50)
		snap.APIP95Ms = percentile(durations, 95)
		snap.APIP99Ms = percentile(durations, 99)
	}
	return snap
}

// LogSummary writes one perf_summary line covering the collector's lifetime.
func (c *Collector) LogSummary(topN int) {
	snap := c.Snapshot(c.started, topN)
	attrs := []any{
		"uptime", time.Since(c.started).Round(time.Second).String(),
		"api_requests", snap.APIRequests,
		"proxied_requests", snap.ProxiedRequests,
		"upstream_failures", snap.UpstreamFailures,
		"queries", snap.Queries,
		"query_failures", snap.QueryFailures,
		"api_p50_ms", snap.APIP50Ms,
		"api_p95_ms", snap.APIP95Ms,
		"api_p99_ms", snap.APIP99Ms,
	}
	if len(snap.SlowestRoutes) > 0 {
		attrs = append(attrs, "slowest_route", snap.SlowestRoutes[0].Route, "slowest_route_avg_ms", snap.SlowestRoutes[0].AvgMs)
	}
	slog.Info("perf_summary", attrs...)
}

func accumulate(stats map[string]*RouteStat, e Entry) {
	s, ok := stats[e.Route]
	if !ok {
		s = &RouteStat{Route: e.Route}
		stats[e.Route] = s
	}
	s.Count++
	s.TotalMs += e.DurationMs
	s.MaxMs = math.Max(s.MaxMs, e.DurationMs)
	s.AvgMs = s.TotalMs / float64(s.Count)
}

// percentile returns the p-th percentile from a sorted slice by linear interpolation.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// topByAvg returns the n slowest entries by average duration.
func topByAvg(stats map[string]*RouteStat, n int) []RouteStat {
	list := make([]RouteStat, 0, len(stats))
	for _, s := range stats {
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AvgMs == list[j].AvgMs {
			return list[i].Route < list[j].Route
		}
		return list[i].AvgMs > list[j].AvgMs
	})
	if n >= 0 && len(list) > n {
		list = list[:n]
	}
	return list
}
