// Package metrics keeps in-process latency and pool statistics for the health endpoints.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// =============================================================================
// Latency Tracker
// =============================================================================

// LatencyTracker keeps the most recent samples in a ring buffer and reports
// percentiles over them.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	full    bool
	total   int64
}

// NewLatencyTracker creates a tracker that remembers the last window samples.
func NewLatencyTracker(window int) *LatencyTracker {
	if window <= 0 {
		window = 1000
	}
	return &LatencyTracker{samples: make([]time.Duration, window)}
}

// Record adds one measurement, evicting the oldest when the window is full.
func (lt *LatencyTracker) Record(d time.Duration) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	lt.samples[lt.next] = d
	lt.next = (lt.next + 1) % len(lt.samples)
	if lt.next == 0 {
		lt.full = true
	}
	lt.total++
}

// Stats summarises the samples currently in the window.
func (lt *LatencyTracker) Stats() LatencyStats {
	lt.mu.Lock()
	n := lt.next
	if lt.full {
		n = len(lt.samples)
	}
	window := make([]time.Duration, n)
	copy(window, lt.samples[:n])
	total := lt.total
	lt.mu.Unlock()

	if n == 0 {
		return LatencyStats{}
	}
	sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })

	var sum time.Duration
	for _, d := range window {
		sum += d
	}

	return LatencyStats{
		Count:   total,
		Samples: n,
		Min:     window[0],
		Max:     window[n-1],
		Avg:     sum / time.Duration(n),
		P50:     percentile(window, 0.50),
		P95:     percentile(window, 0.95),
		P99:     percentile(window, 0.99),
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	return sorted[int(float64(len(sorted)-1)*p)]
}

// LatencyStats holds latency statistics.
type LatencyStats struct {
	Count   int64         `json:"count"`
	Samples int           `json:"samples"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
	Avg     time.Duration `json:"avg"`
	P50     time.Duration `json:"p50"`
	P95     time.Duration `json:"p95"`
	P99     time.Duration `json:"p99"`
}

// ToMap renders the stats in milliseconds for JSON responses.
func (s LatencyStats) ToMap() map[string]any {
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
	return map[string]any{
		"count":       s.Count,
		"sample_size": s.Samples,
		"min_ms":      ms(s.Min),
		"max_ms":      ms(s.Max),
		"avg_ms":      ms(s.Avg),
		"p50_ms":      ms(s.P50),
		"p95_ms":      ms(s.P95),
		"p99_ms":      ms(s.P99),
	}
}

// =============================================================================
// Registry
// =============================================================================

// LatencyRegistry holds one tracker per operation name.
type LatencyRegistry struct {
	mu       sync.RWMutex
	trackers map[string]*LatencyTracker
	window   int
}

// NewLatencyRegistry creates an empty registry.
func NewLatencyRegistry(window int) *LatencyRegistry {
	return &LatencyRegistry{
		trackers: make(map[string]*LatencyTracker),
		window:   window,
	}
}

// Record adds a measurement for the named operation.
func (r *LatencyRegistry) Record(name string, d time.Duration) {
	r.mu.RLock()
	tracker, ok := r.trackers[name]
	r.mu.RUnlock()

	if !ok {
		r.mu.Lock()
		if tracker, ok = r.trackers[name]; !ok {
			tracker = NewLatencyTracker(r.window)
			r.trackers[name] = tracker
		}
		r.mu.Unlock()
	}
	tracker.Record(d)
}

// Stats returns the stats of one operation.
func (r *LatencyRegistry) Stats(name string) LatencyStats {
	r.mu.RLock()
	tracker, ok := r.trackers[name]
	r.mu.RUnlock()
	if !ok {
		return LatencyStats{}
	}
	return tracker.Stats()
}

// AllStats returns the stats of every operation seen so far.
func (r *LatencyRegistry) AllStats() map[string]LatencyStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]LatencyStats, len(r.trackers))
	for name, tracker := range r.trackers {
		result[name] = tracker.Stats()
	}
	return result
}

var (
	globalRegistry     *LatencyRegistry
	globalRegistryOnce sync.Once
)

// GlobalRegistry returns the process-wide registry.
func GlobalRegistry() *LatencyRegistry {
	globalRegistryOnce.Do(func() {
		globalRegistry = NewLatencyRegistry(1000)
	})
	return globalRegistry
}

// RecordLatency records to the process-wide registry.
func RecordLatency(name string, d time.Duration) {
	GlobalRegistry().Record(name, d)
}

// Since records the time elapsed since start. Use as `defer metrics.Since("op", time.Now())`.
func Since(name string, start time.Time) {
	RecordLatency(name, time.Since(start))
}
