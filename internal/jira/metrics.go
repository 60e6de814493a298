package jira

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "cgate"
	metricsSubsystem = "jira"
)

const (
	outcomeFound    = "found"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

// Metrics holds the Prometheus collectors for backend calls.
//
// Labels:
//   - op: issue_exists, project_exists, query_match, query_check
//   - backend: configured backend name
//   - outcome: found, not_found, error
type Metrics struct {
	LookupsTotal          *prometheus.CounterVec
	LookupDurationSeconds *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "lookups_total",
			Help:      "Issue tracker backend calls by operation, backend and outcome.",
		}, []string{"op", "backend", "outcome"}),
		LookupDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "lookup_duration_seconds",
			Help:      "Latency of issue tracker backend calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		}, []string{"op", "backend"}),
	}
}

// observe is a no-op on a nil receiver
func (m *Metrics) observe(op, backend, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(op, backend, outcome).Inc()
	m.LookupDurationSeconds.WithLabelValues(op, backend).Observe(elapsed.Seconds())
}
