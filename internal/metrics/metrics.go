// Package metrics exposes pipeline observability counters via Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	providerCalls      *prometheus.CounterVec
	providerLatency    *prometheus.HistogramVec
	breakerTransitions *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec
	pipelineResults    *prometheus.CounterVec
}

// New creates and registers the pipeline collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uxray_provider_calls_total",
			Help: "Provider invocations by provider, stage and outcome.",
		}, []string{"provider", "stage", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "uxray_provider_call_seconds",
			Help:    "Provider invocation latency in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"provider", "stage"}),
		breakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uxray_breaker_transitions_total",
			Help: "Circuit breaker state transitions by operation.",
		}, []string{"operation", "to"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "uxray_stage_seconds",
			Help:    "Pipeline stage duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"stage"}),
		pipelineResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uxray_pipeline_results_total",
			Help: "Completed analyses by result mode.",
		}, []string{"mode"}),
	}

	m.registry.MustRegister(
		m.providerCalls,
		m.providerLatency,
		m.breakerTransitions,
		m.stageDuration,
		m.pipelineResults,
	)
	return m
}

// ObserveProviderCall records one provider invocation.
func (m *Metrics) ObserveProviderCall(provider, stage, outcome string, d time.Duration) {
	m.providerCalls.WithLabelValues(provider, stage, outcome).Inc()
	m.providerLatency.WithLabelValues(provider, stage).Observe(d.Seconds())
}

// ObserveBreakerTransition records one breaker state change.
func (m *Metrics) ObserveBreakerTransition(operation, to string) {
	m.breakerTransitions.WithLabelValues(operation, to).Inc()
}

// ObserveStage records one completed pipeline stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveResult records one finished analysis.
func (m *Metrics) ObserveResult(mode string) {
	m.pipelineResults.WithLabelValues(mode).Inc()
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
