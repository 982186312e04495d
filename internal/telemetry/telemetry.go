// Package telemetry provides observability with Prometheus metrics and structured logging.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aigate/internal/domain"
)

// Metrics holds all Prometheus metrics for the gateway
type Metrics struct {
	// Request metrics. The cache label distinguishes hits from live calls
	// so hit rate is derivable without a separate counter pair.
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Provider metrics
	ErrorsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	factory := promauto.With(registry)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aigate_requests_total",
				Help: "Total number of AI requests",
			},
			[]string{"provider", "model", "cache"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aigate_request_duration_seconds",
				Help:    "AI request duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "model"},
		),

		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "aigate_requests_in_flight",
				Help: "Number of AI requests currently being processed",
			},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aigate_errors_total",
				Help: "Total AI request errors by classified code",
			},
			[]string{"provider", "model", "code"},
		),

		registry: registry,
	}
}

// StatusFunc reports current provider configuration state
type StatusFunc func() domain.ProviderStatus

// RegisterProviderStatus registers a gauge that re-evaluates provider
// configuration at every scrape rather than caching a value.
func (m *Metrics) RegisterProviderStatus(status StatusFunc) {
	for _, p := range domain.AllProviders() {
		provider := p
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name:        "aigate_provider_configured",
				Help:        "Whether a provider has usable credentials (1) or not (0)",
				ConstLabels: prometheus.Labels{"provider": string(provider)},
			},
			func() float64 {
				if status().Providers[provider] {
					return 1
				}
				return 0
			},
		))
	}
}

// Handler returns an HTTP handler serving the metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RequestRecorder tracks one request through the gateway
type RequestRecorder struct {
	metrics  *Metrics
	provider string
	model    string
	started  time.Time
}

// NewRequestRecorder marks a request in flight
func (m *Metrics) NewRequestRecorder(provider domain.Provider, model string) *RequestRecorder {
	m.RequestsInFlight.Inc()
	return &RequestRecorder{
		metrics:  m,
		provider: string(provider),
		model:    model,
		started:  time.Now(),
	}
}

// RecordSuccess records a completed live provider call
func (r *RequestRecorder) RecordSuccess() {
	r.metrics.RequestsInFlight.Dec()
	r.metrics.RequestsTotal.WithLabelValues(r.provider, r.model, "miss").Inc()
	r.metrics.RequestDuration.WithLabelValues(r.provider, r.model).Observe(time.Since(r.started).Seconds())
}

// RecordCacheHit records a request served from cache. It still counts toward
// RequestsTotal; only the cache label differs from a live call.
func (r *RequestRecorder) RecordCacheHit() {
	r.metrics.RequestsInFlight.Dec()
	r.metrics.RequestsTotal.WithLabelValues(r.provider, r.model, "hit").Inc()
}

// RecordError records a failed provider call with its classified code
func (r *RequestRecorder) RecordError(code string) {
	r.metrics.RequestsInFlight.Dec()
	r.metrics.RequestsTotal.WithLabelValues(r.provider, r.model, "miss").Inc()
	r.metrics.ErrorsTotal.WithLabelValues(r.provider, r.model, code).Inc()
	r.metrics.RequestDuration.WithLabelValues(r.provider, r.model).Observe(time.Since(r.started).Seconds())
}
