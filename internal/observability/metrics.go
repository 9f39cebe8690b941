// Package observability holds the Prometheus instrumentation for the risk
// engine. Metrics are registered once on the default registry and exposed by
// the API server on /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus counters, histograms, and gauges.
type Metrics struct {
	ProviderRequests *prometheus.CounterVec // labels: provider, outcome={success,error,suspicious}
	ConsensusResults *prometheus.CounterVec // labels: source={primary_only,validated,fallback}
	Assessments      *prometheus.CounterVec // labels: level

	AlertsDispatched *prometheus.CounterVec   // labels: job
	AlertsSuppressed *prometheus.CounterVec   // labels: job, reason={below_min_severity,cooldown,below_critical}
	DispatchFailures prometheus.Counter
	SweepDuration    *prometheus.HistogramVec // labels: job
	SchedulerRunning prometheus.Gauge
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ProviderRequests,
		m.ConsensusResults,
		m.Assessments,
		m.AlertsDispatched,
		m.AlertsSuppressed,
		m.DispatchFailures,
		m.SweepDuration,
		m.SchedulerRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pestwatch",
			Name:      "provider_requests_total",
			Help:      "Weather provider fetches by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ConsensusResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pestwatch",
			Name:      "consensus_results_total",
			Help:      "Consensus outcomes by source label.",
		}, []string{"source"}),
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pestwatch",
			Name:      "assessments_total",
			Help:      "Risk assessments produced, by level.",
		}, []string{"level"}),
		AlertsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pestwatch",
			Name:      "alerts_dispatched_total",
			Help:      "Alerts handed to the messaging transport, by job.",
		}, []string{"job"}),
		AlertsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pestwatch",
			Name:      "alerts_suppressed_total",
			Help:      "Alerts suppressed by the anti-spam gate, by job and reason.",
		}, []string{"job", "reason"}),
		DispatchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pestwatch",
			Name:      "dispatch_failures_total",
			Help:      "Transport send failures (logged, never retried in-run).",
		}),
		SweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pestwatch",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of one complete sweep, by job.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"job"}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pestwatch",
			Name:      "scheduler_running",
			Help:      "1 when the job runner is active, 0 when stopped.",
		}),
	}
}
