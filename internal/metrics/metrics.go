package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for tool execution
type Metrics struct {
	registry *prometheus.Registry

	// Tool call metrics
	ToolExecutionsTotal      *prometheus.CounterVec
	ToolExecutionDuration    *prometheus.HistogramVec
	ToolExecutionErrorsTotal *prometheus.CounterVec

	// Batch metrics
	BatchesTotal     *prometheus.CounterVec
	BatchDuration    *prometheus.HistogramVec
	BatchSize        prometheus.Histogram
	BatchFailedCalls *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		ToolExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_executions_total",
				Help: "Total number of tool executions",
			},
			[]string{"tool_name", "status"},
		),
		ToolExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool_name"},
		),
		ToolExecutionErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_execution_errors_total",
				Help: "Total number of failed tool executions",
			},
			[]string{"tool_name"},
		),

		BatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_batches_total",
				Help: "Total number of executed tool batches by strategy",
			},
			[]string{"strategy"},
		),
		BatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_batch_duration_seconds",
				Help:    "Wall-clock duration of tool batches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
		BatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tool_batch_size",
				Help:    "Number of calls per tool batch",
				Buckets: prometheus.LinearBuckets(1, 2, 8),
			},
		),
		BatchFailedCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_batch_failed_calls_total",
				Help: "Total number of failed calls inside completed batches",
			},
			[]string{"strategy"},
		),
	}

	m.registry.MustRegister(
		m.ToolExecutionsTotal,
		m.ToolExecutionDuration,
		m.ToolExecutionErrorsTotal,
		m.BatchesTotal,
		m.BatchDuration,
		m.BatchSize,
		m.BatchFailedCalls,
	)

	return m
}

// RecordToolCall records one invocation
func (m *Metrics) RecordToolCall(tool string, duration time.Duration, success bool) {
	status := "error"
	if success {
		status = "success"
	}
	m.ToolExecutionsTotal.WithLabelValues(tool, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
	if !success {
		m.ToolExecutionErrorsTotal.WithLabelValues(tool).Inc()
	}
}

// RecordBatch records one completed batch
func (m *Metrics) RecordBatch(strategy string, size int, duration time.Duration, failed int) {
	m.BatchesTotal.WithLabelValues(strategy).Inc()
	m.BatchDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	m.BatchSize.Observe(float64(size))
	if failed > 0 {
		m.BatchFailedCalls.WithLabelValues(strategy).Add(float64(failed))
	}
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
