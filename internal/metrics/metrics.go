// Package metrics exposes Prometheus collectors for widget traffic.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"finitefield.org/storefront-widgets/internal/cart"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	RendersTotal      *prometheus.CounterVec
	SubmissionsTotal  *prometheus.CounterVec
	SubmitDuration    prometheus.Histogram
	ControllersActive prometheus.Gauge
	StreamsActive     prometheus.Gauge
}

// New registers collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTP requests by route and status class.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RendersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_widget_renders_total",
			Help: "Widget fragments rendered by kind.",
		}, []string{"kind"}),
		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_submissions_total",
			Help: "Settled add-to-cart calls by outcome.",
		}, []string{"outcome"}),
		SubmitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_cart_submit_duration_seconds",
			Help:    "Latency of the platform add-to-cart call.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 4, 8},
		}),
		ControllersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_cart_controllers_active",
			Help: "Live per-session cart controllers.",
		}),
		StreamsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_state_streams_active",
			Help: "Open websocket state streams.",
		}),
	}
	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RendersTotal,
		m.SubmissionsTotal,
		m.SubmitDuration,
		m.ControllersActive,
		m.StreamsActive,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveSubmit records one settled add-to-cart call. It matches the
// cart.WithSettleHook signature.
func (m *Metrics) ObserveSubmit(r cart.SubmitResult) {
	outcome := "success"
	if r.Phase == cart.PhaseFailed {
		outcome = "error"
		if errors.Is(r.Err, cart.ErrUnavailable) {
			outcome = "unavailable"
		}
	}
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
	m.SubmitDuration.Observe(r.Duration.Seconds())
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, took time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
