// Package metrics exposes Prometheus instrumentation for the store, the fetch
// scheduler and the record cache.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures [New].
type Config struct {
	// Namespace is the metrics namespace (default: "vitalboard").
	Namespace string

	// Buckets are the histogram buckets for fetch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is where collectors are registered. Defaults to a fresh
	// registry so several boards can coexist in one process.
	Registry *prometheus.Registry
}

// Option configures [Metrics].
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithBuckets sets the fetch duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Outcome labels for fetch results.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeCached  = "cached"
)

// Metrics holds the collectors. The zero value is not usable; use [New].
// A nil *Metrics is a valid no-op sink.
type Metrics struct {
	registry *prometheus.Registry

	storeWrites        *prometheus.CounterVec
	storeNotifications *prometheus.CounterVec
	subscriberPanics   prometheus.Counter
	subscribers        prometheus.Gauge
	fetchesTotal       *prometheus.CounterVec
	fetchDuration      *prometheus.HistogramVec
	recordsFetched     *prometheus.GaugeVec
	cacheLookups       *prometheus.CounterVec
	viewsPublished     *prometheus.CounterVec
}

// New creates and registers the collectors.
func New(opts ...Option) *Metrics {
	config := Config{
		Namespace: "vitalboard",
		Buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(config.Registry)
	ns := config.Namespace

	return &Metrics{
		registry: config.Registry,

		storeWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Total number of store writes by scope",
		}, []string{"scope"}),

		storeNotifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "store",
			Name:      "notifications_total",
			Help:      "Total number of subscriber notifications delivered by scope",
		}, []string{"scope"}),

		subscriberPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "store",
			Name:      "subscriber_panics_total",
			Help:      "Total number of recovered subscriber panics",
		}),

		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "store",
			Name:      "subscribers",
			Help:      "Number of components subscribed to the store",
		}),

		fetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "fetch",
			Name:      "total",
			Help:      "Total number of feed fetches by feed and outcome",
		}, []string{"feed", "outcome"}),

		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Feed fetch duration in seconds",
			Buckets:   config.Buckets,
		}, []string{"feed"}),

		recordsFetched: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "fetch",
			Name:      "records",
			Help:      "Number of records in the latest successful fetch by feed",
		}, []string{"feed"}),

		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Record cache lookups by result",
		}, []string{"result"}),

		viewsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "views",
			Name:      "published_total",
			Help:      "Panel views published by panel kind",
		}, []string{"kind"}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StoreWrite counts a store write.
func (m *Metrics) StoreWrite(scope string) {
	if m == nil {
		return
	}
	m.storeWrites.WithLabelValues(scope).Inc()
}

// StoreNotify counts notifications delivered for one write.
func (m *Metrics) StoreNotify(scope string, notified int) {
	if m == nil {
		return
	}
	m.storeNotifications.WithLabelValues(scope).Add(float64(notified))
}

// SubscriberPanic counts a recovered subscriber panic.
func (m *Metrics) SubscriberPanic() {
	if m == nil {
		return
	}
	m.subscriberPanics.Inc()
}

// Subscribers sets the subscriber gauge.
func (m *Metrics) Subscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

// FetchCompleted records one fetch. records is ignored unless outcome is
// [OutcomeSuccess].
func (m *Metrics) FetchCompleted(feed, outcome string, d time.Duration, records int) {
	if m == nil {
		return
	}
	m.fetchesTotal.WithLabelValues(feed, outcome).Inc()
	if outcome == OutcomeCached {
		return
	}
	m.fetchDuration.WithLabelValues(feed).Observe(d.Seconds())
	if outcome == OutcomeSuccess {
		m.recordsFetched.WithLabelValues(feed).Set(float64(records))
	}
}

// CacheLookup counts a cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ViewPublished counts a published panel view.
func (m *Metrics) ViewPublished(kind string) {
	if m == nil {
		return
	}
	m.viewsPublished.WithLabelValues(kind).Inc()
}
