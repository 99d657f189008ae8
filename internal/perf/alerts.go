package perf

import (
	"time"

	"go.uber.org/zap"
)

// AlertKind identifies which metric an alert concerns
type AlertKind string

const (
	AlertQueryTime     AlertKind = "query_time"
	AlertMemoryUsage   AlertKind = "memory_usage"
	AlertCacheHitRatio AlertKind = "cache_hit_ratio"
)

// AlertSeverity grades an alert
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// maxRecentAlerts bounds the retained alert history
const maxRecentAlerts = 100

// Alert records one threshold crossing. Alerts are never mutated after
// creation except for the Resolved flag, which exists for callers that
// track acknowledgement; nothing here resolves alerts automatically.
type Alert struct {
	Kind         AlertKind
	Severity     AlertSeverity
	Metric       string
	CurrentValue float64
	Threshold    float64
	Message      string
	Timestamp    time.Time
	Resolved     bool
}

// AlertHandler receives alerts synchronously as they are emitted
type AlertHandler func(Alert)

// OnAlert registers a handler invoked for every subsequent alert.
// Handlers run synchronously on the emitting goroutine.
func (t *Tracker) OnAlert(handler AlertHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = append(t.handlers, handler)
}

// RecentAlerts returns up to the most recent 100 alerts, oldest first
func (t *Tracker) RecentAlerts() []Alert {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Alert, len(t.alerts))
	copy(out, t.alerts)
	return out
}

// emit records an alert and fans it out to handlers. Each handler call
// is isolated: a panicking handler is logged and the rest still run, so
// one broken handler can never affect the query that triggered it.
// Callers must not hold t.mu.
func (t *Tracker) emit(alert Alert) {
	t.mu.Lock()
	t.alerts = append(t.alerts, alert)
	if len(t.alerts) > maxRecentAlerts {
		t.alerts = t.alerts[len(t.alerts)-maxRecentAlerts:]
	}
	handlers := make([]AlertHandler, len(t.handlers))
	copy(handlers, t.handlers)
	t.mu.Unlock()

	for i, handler := range handlers {
		t.invokeHandler(i, handler, alert)
	}
}

func (t *Tracker) invokeHandler(idx int, handler AlertHandler, alert Alert) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("alert handler panicked",
				zap.Int("handler", idx),
				zap.String("kind", string(alert.Kind)),
				zap.Any("panic", r))
		}
	}()
	handler(alert)
}
