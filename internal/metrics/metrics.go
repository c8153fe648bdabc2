// Package metrics exposes job execution counters on a private Prometheus
// registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leapetl"

// Metrics holds the collectors recorded by the engine.
type Metrics struct {
	registry *prometheus.Registry

	rowsExtracted *prometheus.CounterVec
	rowsLoaded    *prometheus.CounterVec
	rowsDropped   *prometheus.CounterVec
	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rowsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_extracted_total",
			Help:      "Rows read from job sources.",
		}, []string{"job"}),
		rowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Rows written to job sinks.",
		}, []string{"job"}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows removed by a cleaning step.",
		}, []string{"job", "step"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Finished job executions by final status.",
		}, []string{"job", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of a job including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"job"}),
	}

	m.registry.MustRegister(
		m.rowsExtracted,
		m.rowsLoaded,
		m.rowsDropped,
		m.jobRuns,
		m.jobDuration,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RowsExtracted adds n to the extracted row count of job.
func (m *Metrics) RowsExtracted(job string, n int) {
	m.rowsExtracted.WithLabelValues(job).Add(float64(n))
}

// RowsLoaded adds n to the loaded row count of job.
func (m *Metrics) RowsLoaded(job string, n int) {
	m.rowsLoaded.WithLabelValues(job).Add(float64(n))
}

// RowsDropped adds n to the rows removed by step. Zero counts are ignored.
func (m *Metrics) RowsDropped(job, step string, n int) {
	if n <= 0 {
		return
	}
	m.rowsDropped.WithLabelValues(job, step).Add(float64(n))
}

// JobFinished counts a finished job and observes its duration.
func (m *Metrics) JobFinished(job, status string, d time.Duration) {
	m.jobRuns.WithLabelValues(job, status).Inc()
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}
