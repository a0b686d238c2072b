// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the indexing engine.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "sercha"
	subsystem = "indexsync"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// Metrics holds the engine's collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	tasksProcessed   *prometheus.CounterVec
	documentsWritten *prometheus.CounterVec
	drainDuration    prometheus.Histogram
	rebuilds         *prometheus.CounterVec
	rebuildDuration  *prometheus.HistogramVec
	pendingTasks     prometheus.Gauge
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tasksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks_processed_total",
			Help:      "Queue tasks processed by kind and result.",
		}, []string{"kind", "result"}),
		documentsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "documents_total",
			Help:      "Document writes by operation and result.",
		}, []string{"operation", "result"}),
		drainDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "drain_duration_seconds",
			Help:      "Duration of queue drain passes.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		rebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rebuilds_total",
			Help:      "Full-site rebuilds by strategy and result.",
		}, []string{"strategy", "result"}),
		rebuildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rebuild_duration_seconds",
			Help:      "Duration of full-site rebuilds.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}, []string{"strategy"}),
		pendingTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pending_tasks",
			Help:      "Tasks pending at the start of the last drain.",
		}),
	}

	m.registry.MustRegister(
		m.tasksProcessed,
		m.documentsWritten,
		m.drainDuration,
		m.rebuilds,
		m.rebuildDuration,
		m.pendingTasks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TaskProcessed counts one queue task.
func (m *Metrics) TaskProcessed(kind, result string) {
	if m == nil {
		return
	}
	m.tasksProcessed.WithLabelValues(kind, result).Inc()
}

// DocumentWritten counts one document upsert or delete.
func (m *Metrics) DocumentWritten(operation, result string) {
	if m == nil {
		return
	}
	m.documentsWritten.WithLabelValues(operation, result).Inc()
}

// DrainObserved records a finished drain pass.
func (m *Metrics) DrainObserved(pending int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.pendingTasks.Set(float64(pending))
	m.drainDuration.Observe(elapsed.Seconds())
}

// RebuildObserved records a finished full-site rebuild.
func (m *Metrics) RebuildObserved(strategy, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.rebuilds.WithLabelValues(strategy, result).Inc()
	m.rebuildDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// ResultLabel maps an error to a result label.
func ResultLabel(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
