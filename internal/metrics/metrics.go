// Package metrics exposes Prometheus collectors for dispatch rounds.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	launches        *prometheus.CounterVec
	outcomes        *prometheus.CounterVec
	activeWorkers   prometheus.Gauge
	attemptDuration *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		launches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gather_process_launches_total",
				Help: "Total number of external tool launches, labeled by task.",
			},
			[]string{"task"},
		),
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gather_job_outcomes_total",
				Help: "Total number of finished jobs, labeled by task and outcome.",
			},
			[]string{"task", "outcome"},
		),
		activeWorkers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gather_active_workers",
				Help: "Number of worker slots currently running a job.",
			},
		),
		attemptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gather_attempt_duration_seconds",
				Help:    "Histogram of single attempt durations, labeled by task.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 300, 900},
			},
			[]string{"task"},
		),
	}
}

// ObserveAttempt records one launch of the tool for task.
func (m *Metrics) ObserveAttempt(task string, d time.Duration) {
	if m == nil {
		return
	}
	m.launches.WithLabelValues(task).Inc()
	m.attemptDuration.WithLabelValues(task).Observe(d.Seconds())
}

// ObserveOutcome records a job reaching a terminal outcome.
func (m *Metrics) ObserveOutcome(task, outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(task, outcome).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func (m *Metrics) IncActiveWorkers() {
	if m == nil {
		return
	}
	m.activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func (m *Metrics) DecActiveWorkers() {
	if m == nil {
		return
	}
	m.activeWorkers.Dec()
}

// Handler returns an http.Handler exposing g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
