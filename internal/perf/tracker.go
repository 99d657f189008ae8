package perf

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/astquery-mcp/pkg/types"
)

const (
	// sampleWindow is the rolling latency window size
	sampleWindow = 1000

	// DefaultWarnLatency triggers a query_time warning
	DefaultWarnLatency = 150 * time.Millisecond
	// DefaultSLALatency is the hard budget; breaches are critical
	DefaultSLALatency = 200 * time.Millisecond
	// DefaultHitRatioThreshold triggers a cache_hit_ratio warning
	DefaultHitRatioThreshold = 0.7
	// DefaultMemoryThreshold triggers a memory_usage alert (bytes)
	DefaultMemoryThreshold = 512 << 20
	// DefaultCollectInterval is the periodic evaluation tick for
	// hit-ratio and memory alerts
	DefaultCollectInterval = 30 * time.Second
)

// Thresholds configures alert emission
type Thresholds struct {
	WarnLatency  time.Duration
	SLALatency   time.Duration
	HitRatio     float64
	MemoryBytes  uint64
	CollectEvery time.Duration
}

// DefaultThresholds returns the standard alert configuration
func DefaultThresholds() Thresholds {
	return Thresholds{
		WarnLatency:  DefaultWarnLatency,
		SLALatency:   DefaultSLALatency,
		HitRatio:     DefaultHitRatioThreshold,
		MemoryBytes:  DefaultMemoryThreshold,
		CollectEvery: DefaultCollectInterval,
	}
}

// QueryStats is a point-in-time aggregate over all completed queries
type QueryStats struct {
	TotalQueries     int64
	QueriesByType    map[types.QueryType]int64
	AverageLatencyMs float64
	P50LatencyMs     float64
	P95LatencyMs     float64
	P99LatencyMs     float64
	CacheHitRatio    float64
	ErrorRate        float64
	PeakConcurrent   int64
}

// Tracker maintains rolling latency samples, aggregate query counters,
// and threshold alerting. All state is guarded by a single mutex;
// percentile computation reads a consistent snapshot of the window.
type Tracker struct {
	mu sync.Mutex

	// rolling latency window, milliseconds
	samples []float64

	// aggregates
	totalQueries int64
	errorCount   int64
	cacheHits    int64
	latencySumMs float64
	byType       map[types.QueryType]int64

	// concurrency gauge
	concurrent     int64
	peakConcurrent int64

	// alerting
	thresholds Thresholds
	alerts     []Alert
	handlers   []AlertHandler

	// hitRatioFn supplies the cache hit ratio on each collection tick
	hitRatioFn func() float64

	log  *zap.Logger
	done chan struct{}
	once sync.Once
}

// NewTracker creates a Tracker and starts its periodic collection loop
func NewTracker(thresholds Thresholds, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	if thresholds.CollectEvery <= 0 {
		thresholds.CollectEvery = DefaultCollectInterval
	}

	t := &Tracker{
		samples:    make([]float64, 0, sampleWindow),
		byType:     make(map[types.QueryType]int64),
		thresholds: thresholds,
		log:        log,
		done:       make(chan struct{}),
	}

	go t.collectLoop(thresholds.CollectEvery)

	return t
}

// SetHitRatioSource registers the function polled for the cache hit
// ratio on each collection tick
func (t *Tracker) SetHitRatioSource(fn func() float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hitRatioFn = fn
}

// RecordQuery records one completed query: its latency enters the
// rolling window, the aggregates update exactly once, and a query_time
// alert is emitted when the sample crosses the warning threshold.
func (t *Tracker) RecordQuery(queryType types.QueryType, latency time.Duration, cacheHit bool, failed bool) {
	ms := float64(latency.Microseconds()) / 1000.0

	t.mu.Lock()
	t.samples = append(t.samples, ms)
	if len(t.samples) > sampleWindow {
		t.samples = t.samples[len(t.samples)-sampleWindow:]
	}
	t.totalQueries++
	t.latencySumMs += ms
	t.byType[queryType]++
	if cacheHit {
		t.cacheHits++
	}
	if failed {
		t.errorCount++
	}
	warn := t.thresholds.WarnLatency
	sla := t.thresholds.SLALatency
	t.mu.Unlock()

	if latency > warn {
		severity := SeverityWarning
		threshold := warn
		if latency > sla {
			severity = SeverityCritical
			threshold = sla
		}
		t.emit(Alert{
			Kind:         AlertQueryTime,
			Severity:     severity,
			Metric:       "query_latency_ms",
			CurrentValue: ms,
			Threshold:    float64(threshold.Milliseconds()),
			Message:      fmt.Sprintf("query latency %.1fms exceeded %dms threshold", ms, threshold.Milliseconds()),
			Timestamp:    time.Now(),
		})
	}
}

// EnterQuery increments the concurrent-query gauge and returns the new
// value. Callers must pair it with a deferred ExitQuery.
func (t *Tracker) EnterQuery() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.concurrent++
	if t.concurrent > t.peakConcurrent {
		t.peakConcurrent = t.concurrent
	}
	return t.concurrent
}

// ExitQuery decrements the concurrent-query gauge
func (t *Tracker) ExitQuery() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.concurrent > 0 {
		t.concurrent--
	}
}

// Stats returns a consistent aggregate snapshot
func (t *Tracker) Stats() QueryStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := QueryStats{
		TotalQueries:   t.totalQueries,
		QueriesByType:  make(map[types.QueryType]int64, len(t.byType)),
		PeakConcurrent: t.peakConcurrent,
	}
	for k, v := range t.byType {
		stats.QueriesByType[k] = v
	}
	if t.totalQueries > 0 {
		stats.AverageLatencyMs = t.latencySumMs / float64(t.totalQueries)
		stats.ErrorRate = float64(t.errorCount) / float64(t.totalQueries)
		stats.CacheHitRatio = float64(t.cacheHits) / float64(t.totalQueries)
	}
	stats.P50LatencyMs = percentileLocked(t.samples, 0.50)
	stats.P95LatencyMs = percentileLocked(t.samples, 0.95)
	stats.P99LatencyMs = percentileLocked(t.samples, 0.99)

	return stats
}

// Reset clears all aggregates and the sample window. Explicit operator
// action only; nothing resets stats automatically.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = t.samples[:0]
	t.totalQueries = 0
	t.errorCount = 0
	t.cacheHits = 0
	t.latencySumMs = 0
	t.byType = make(map[types.QueryType]int64)
	t.peakConcurrent = t.concurrent
}

// Close stops the periodic collection loop
func (t *Tracker) Close() {
	t.once.Do(func() { close(t.done) })
}

// collectLoop evaluates hit-ratio and memory thresholds on a fixed tick
// rather than per query
func (t *Tracker) collectLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.Collect()
		case <-t.done:
			return
		}
	}
}

// Collect runs one evaluation of the tick-based alerts. Exported so
// tests and operators can force an evaluation.
func (t *Tracker) Collect() {
	t.mu.Lock()
	ratioFn := t.hitRatioFn
	thresholds := t.thresholds
	total := t.totalQueries
	t.mu.Unlock()

	if ratioFn != nil && total > 0 {
		ratio := ratioFn()
		if ratio < thresholds.HitRatio {
			t.emit(Alert{
				Kind:         AlertCacheHitRatio,
				Severity:     SeverityWarning,
				Metric:       "cache_hit_ratio",
				CurrentValue: ratio,
				Threshold:    thresholds.HitRatio,
				Message:      fmt.Sprintf("cache hit ratio %.2f below %.2f threshold", ratio, thresholds.HitRatio),
				Timestamp:    time.Now(),
			})
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	if mem.HeapAlloc > thresholds.MemoryBytes {
		severity := SeverityWarning
		if float64(mem.HeapAlloc) > 1.5*float64(thresholds.MemoryBytes) {
			severity = SeverityCritical
		}
		t.emit(Alert{
			Kind:         AlertMemoryUsage,
			Severity:     severity,
			Metric:       "heap_alloc_bytes",
			CurrentValue: float64(mem.HeapAlloc),
			Threshold:    float64(thresholds.MemoryBytes),
			Message:      fmt.Sprintf("heap usage %dMB exceeded %dMB threshold", mem.HeapAlloc>>20, thresholds.MemoryBytes>>20),
			Timestamp:    time.Now(),
		})
	}
}

// percentileLocked computes the q-th percentile of samples using
// sort-and-index: sorted[floor(n*q)], clamped to the last element.
// Caller holds the tracker mutex; the input is copied before sorting.
func percentileLocked(samples []float64, q float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	idx := int(math.Floor(float64(len(sorted)) * q))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
