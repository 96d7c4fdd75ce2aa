package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a registry so tests can build independent instances.
type Metrics struct {
	registry      *prometheus.Registry
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	rateLimited   *prometheus.CounterVec
	narration     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storynest",
			Name:      "reconcile_fetch_total",
			Help:      "Reconciling story fetches by outcome",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storynest",
			Name:      "reconcile_fetch_duration_seconds",
			Help:      "Duration of reconciling story fetches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storynest",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client limiter",
		}, []string{"route"}),
		narration: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storynest",
			Name:      "narration_total",
			Help:      "Narration requests by cache result",
		}, []string{"cache"}),
	}
	m.registry.MustRegister(
		m.fetchTotal,
		m.fetchDuration,
		m.rateLimited,
		m.narration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveFetch records one reconciling fetch.
func (m *Metrics) ObserveFetch(outcome string, elapsed time.Duration) {
	m.fetchTotal.WithLabelValues(outcome).Inc()
	m.fetchDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) RateLimited(route string) {
	m.rateLimited.WithLabelValues(route).Inc()
}

// ObserveNarration counts a synthesis served from the cache (hit) or not (miss).
func (m *Metrics) ObserveNarration(cached bool) {
	label := "miss"
	if cached {
		label = "hit"
	}
	m.narration.WithLabelValues(label).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
