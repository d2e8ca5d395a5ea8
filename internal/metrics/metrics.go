// Package metrics collects per-route request statistics for the admin
// endpoint.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Keep the last N latency samples per route for percentile math.
const latencyWindow = 100

type routeStats struct {
	totalRequests int64
	totalErrors   int64
	durations     []time.Duration // ring of the most recent samples
	statusCodes   map[int]int64
	lastRequestAt time.Time
}

// Collector accumulates request, token, and cache counters.
type Collector struct {
	mu        sync.Mutex
	startedAt time.Time
	routes    map[string]*routeStats

	promptTokens     int64
	completionTokens int64

	cacheHits   int64
	cacheMisses int64
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		startedAt: time.Now().UTC(),
		routes:    make(map[string]*routeStats),
	}
}

// RecordRequest records one handled request for a route.
func (c *Collector) RecordRequest(route string, status int, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rs, ok := c.routes[route]
	if !ok {
		rs = &routeStats{statusCodes: make(map[int]int64)}
		c.routes[route] = rs
	}

	rs.totalRequests++
	if status >= 400 {
		rs.totalErrors++
	}
	rs.statusCodes[status]++
	rs.lastRequestAt = time.Now().UTC()

	rs.durations = append(rs.durations, elapsed)
	if len(rs.durations) > latencyWindow {
		rs.durations = rs.durations[len(rs.durations)-latencyWindow:]
	}
}

// RecordTokens accumulates provider token usage.
func (c *Collector) RecordTokens(prompt, completion int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.promptTokens += int64(prompt)
	c.completionTokens += int64(completion)
}

// RecordCacheHit increments the cache hit counter.
func (c *Collector) RecordCacheHit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheHits++
}

// RecordCacheMiss increments the cache miss counter.
func (c *Collector) RecordCacheMiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheMisses++
}

// RouteSnapshot is the per-route view in a metrics snapshot.
type RouteSnapshot struct {
	TotalRequests int64           `json:"total_requests"`
	TotalErrors   int64           `json:"total_errors"`
	AvgLatencyMS  float64         `json:"avg_latency_ms"`
	P95LatencyMS  float64         `json:"p95_latency_ms"`
	StatusCodes   map[int]int64   `json:"status_codes"`
	LastRequestAt *time.Time      `json:"last_request_at,omitempty"`
}

// Snapshot is a point-in-time view of all counters.
type Snapshot struct {
	UptimeSeconds    float64                  `json:"uptime_seconds"`
	Routes           map[string]RouteSnapshot `json:"routes"`
	PromptTokens     int64                    `json:"prompt_tokens"`
	CompletionTokens int64                    `json:"completion_tokens"`
	CacheHits        int64                    `json:"cache_hits"`
	CacheMisses      int64                    `json:"cache_misses"`
}

// Snapshot returns the current counters. Latency stats are computed over the
// last 100 samples per route.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		UptimeSeconds:    time.Since(c.startedAt).Seconds(),
		Routes:           make(map[string]RouteSnapshot, len(c.routes)),
		PromptTokens:     c.promptTokens,
		CompletionTokens: c.completionTokens,
		CacheHits:        c.cacheHits,
		CacheMisses:      c.cacheMisses,
	}

	for route, rs := range c.routes {
		view := RouteSnapshot{
			TotalRequests: rs.totalRequests,
			TotalErrors:   rs.totalErrors,
			StatusCodes:   make(map[int]int64, len(rs.statusCodes)),
		}
		for code, n := range rs.statusCodes {
			view.StatusCodes[code] = n
		}
		if !rs.lastRequestAt.IsZero() {
			at := rs.lastRequestAt
			view.LastRequestAt = &at
		}
		view.AvgLatencyMS, view.P95LatencyMS = latencyStats(rs.durations)
		snap.Routes[route] = view
	}

	return snap
}

func latencyStats(samples []time.Duration) (avgMS, p95MS float64) {
	if len(samples) == 0 {
		return 0, 0
	}

	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	avgMS = float64(total.Microseconds()) / float64(len(sorted)) / 1000

	idx := (len(sorted) * 95) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	p95MS = float64(sorted[idx].Microseconds()) / 1000

	return avgMS, p95MS
}
