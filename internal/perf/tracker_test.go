package perf

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dshills/astquery-mcp/pkg/types"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	thresholds := DefaultThresholds()
	thresholds.CollectEvery = time.Hour // tests call Collect explicitly
	tr := NewTracker(thresholds, zap.NewNop())
	t.Cleanup(tr.Close)
	return tr
}

func TestRecordQueryAggregates(t *testing.T) {
	tr := newTestTracker(t)

	tr.RecordQuery(types.QueryTypeFile, 10*time.Millisecond, false, false)
	tr.RecordQuery(types.QueryTypeFile, 20*time.Millisecond, true, false)
	tr.RecordQuery(types.QueryTypeSemantic, 30*time.Millisecond, false, true)

	stats := tr.Stats()
	assert.Equal(t, int64(3), stats.TotalQueries)
	assert.Equal(t, int64(2), stats.QueriesByType[types.QueryTypeFile])
	assert.Equal(t, int64(1), stats.QueriesByType[types.QueryTypeSemantic])
	assert.InDelta(t, 20.0, stats.AverageLatencyMs, 0.01)
	assert.InDelta(t, 1.0/3.0, stats.ErrorRate, 0.001)
	assert.InDelta(t, 1.0/3.0, stats.CacheHitRatio, 0.001)
}

func TestPercentileMonotonicity(t *testing.T) {
	tr := newTestTracker(t)

	// Uneven sample distribution
	durations := []time.Duration{
		5 * time.Millisecond, 7 * time.Millisecond, 9 * time.Millisecond,
		12 * time.Millisecond, 40 * time.Millisecond, 95 * time.Millisecond,
		3 * time.Millisecond, 110 * time.Millisecond, 6 * time.Millisecond,
	}
	for _, d := range durations {
		tr.RecordQuery(types.QueryTypeSemantic, d, false, false)
	}

	stats := tr.Stats()
	assert.LessOrEqual(t, stats.P50LatencyMs, stats.P95LatencyMs)
	assert.LessOrEqual(t, stats.P95LatencyMs, stats.P99LatencyMs)
	assert.Greater(t, stats.P50LatencyMs, 0.0)
}

func TestPercentileSingleSample(t *testing.T) {
	tr := newTestTracker(t)
	tr.RecordQuery(types.QueryTypeFile, 15*time.Millisecond, false, false)

	stats := tr.Stats()
	assert.InDelta(t, 15.0, stats.P50LatencyMs, 1.0)
	assert.Equal(t, stats.P50LatencyMs, stats.P99LatencyMs)
}

func TestQueryTimeAlertSeverity(t *testing.T) {
	tr := newTestTracker(t)

	tr.RecordQuery(types.QueryTypeSemantic, 160*time.Millisecond, false, false)
	tr.RecordQuery(types.QueryTypeSemantic, 250*time.Millisecond, false, false)
	tr.RecordQuery(types.QueryTypeSemantic, 50*time.Millisecond, false, false)

	alerts := tr.RecentAlerts()
	require.Len(t, alerts, 2)
	assert.Equal(t, AlertQueryTime, alerts[0].Kind)
	assert.Equal(t, SeverityWarning, alerts[0].Severity)
	assert.Equal(t, SeverityCritical, alerts[1].Severity)
}

func TestHitRatioAlertOnCollect(t *testing.T) {
	tr := newTestTracker(t)
	tr.SetHitRatioSource(func() float64 { return 0.4 })

	// No queries yet: no alert even with a low ratio source
	tr.Collect()
	assert.Empty(t, alertsOfKind(tr, AlertCacheHitRatio))

	tr.RecordQuery(types.QueryTypeFile, time.Millisecond, false, false)
	tr.Collect()

	alerts := alertsOfKind(tr, AlertCacheHitRatio)
	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityWarning, alerts[0].Severity)
	assert.InDelta(t, 0.4, alerts[0].CurrentValue, 0.001)
}

func TestAlertHandlerIsolation(t *testing.T) {
	tr := newTestTracker(t)

	var received []Alert
	tr.OnAlert(func(Alert) { panic("broken handler") })
	tr.OnAlert(func(a Alert) { received = append(received, a) })

	tr.RecordQuery(types.QueryTypeSemantic, 300*time.Millisecond, false, false)

	require.Len(t, received, 1, "second handler must run despite the first panicking")
	assert.Equal(t, AlertQueryTime, received[0].Kind)
}

func TestRecentAlertsBounded(t *testing.T) {
	tr := newTestTracker(t)

	for i := 0; i < maxRecentAlerts+20; i++ {
		tr.RecordQuery(types.QueryTypeSemantic, 300*time.Millisecond, false, false)
	}

	assert.Len(t, tr.RecentAlerts(), maxRecentAlerts)
}

func TestConcurrencyGauge(t *testing.T) {
	tr := newTestTracker(t)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.EnterQuery()
			<-start
			tr.ExitQuery()
		}()
	}

	assert.Eventually(t, func() bool {
		return tr.Stats().PeakConcurrent == 8
	}, time.Second, time.Millisecond)

	close(start)
	wg.Wait()

	assert.Equal(t, int64(8), tr.Stats().PeakConcurrent, "peak is retained after queries drain")
}

func TestReset(t *testing.T) {
	tr := newTestTracker(t)

	tr.RecordQuery(types.QueryTypeFile, 10*time.Millisecond, true, false)
	tr.Reset()

	stats := tr.Stats()
	assert.Equal(t, int64(0), stats.TotalQueries)
	assert.Equal(t, 0.0, stats.P50LatencyMs)
	assert.Empty(t, stats.QueriesByType)
}

func alertsOfKind(tr *Tracker, kind AlertKind) []Alert {
	var out []Alert
	for _, a := range tr.RecentAlerts() {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}
