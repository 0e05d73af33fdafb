// Package monitoring holds the bridge's Prometheus metrics.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. Each Metrics owns its registry so
// multiple instances can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	ActionsTotal     *prometheus.CounterVec
	UpstreamAttempts *prometheus.CounterVec
	DedupTotal       *prometheus.CounterVec
	NotifyFailures   prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry:  registry,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		// Pipeline metrics
		ActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_actions_total",
				Help: "Total number of dispatched actions",
			},
			[]string{"action", "status"},
		),
		UpstreamAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_upstream_attempts_total",
				Help: "Total number of upstream completion attempts",
			},
			[]string{"result"},
		),
		DedupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_store_dedup_total",
				Help: "Total number of deduplicated store appends",
			},
			[]string{"store", "reason"},
		),
		NotifyFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_notify_failures_total",
				Help: "Total number of failed notification deliveries",
			},
		),

		// System metrics
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_uptime_seconds",
				Help: "Bridge uptime in seconds",
			},
		),
	}

	return m
}

// Registry exposes the backing registry for the metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAction records a dispatched action and its terminal status.
func (m *Metrics) RecordAction(actionName, status string) {
	m.ActionsTotal.WithLabelValues(actionName, status).Inc()
}

// RecordUpstreamAttempt records one upstream completion attempt.
func (m *Metrics) RecordUpstreamAttempt(result string) {
	m.UpstreamAttempts.WithLabelValues(result).Inc()
}

// RecordDedup records a deduplicated store append.
func (m *Metrics) RecordDedup(store, reason string) {
	m.DedupTotal.WithLabelValues(store, reason).Inc()
}

// RecordNotifyFailure records a failed notification delivery.
func (m *Metrics) RecordNotifyFailure() {
	m.NotifyFailures.Inc()
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
