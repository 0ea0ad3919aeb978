// Package metrics holds the Prometheus collectors for the taxonomy service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the service. Each collector has
// its own registry so tests can create as many as they need.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// BuildDuration times payload construction (filter, accumulate, project)
	BuildDuration *prometheus.HistogramVec
	Categories    prometheus.Gauge
	Invariant     prometheus.Counter
}

// NewCollector creates a collector with metrics under namespace
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of payload cache hits",
			},
			[]string{"payload"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of payload cache misses",
			},
			[]string{"payload"},
		),
		BuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "payload_build_duration_seconds",
				Help:      "Time spent filtering, counting and projecting the taxonomy",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"payload"},
		),
		Categories: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "taxonomy_categories",
				Help:      "Number of categories in the current taxonomy snapshot",
			},
		),
		Invariant: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "taxonomy_invariant_violations_total",
				Help:      "Broken taxonomy invariants detected while serving requests",
			},
		),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.CacheHits,
		c.CacheMisses,
		c.BuildDuration,
		c.Categories,
		c.Invariant,
	)
	return c
}

// Registry returns the registry backing this collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
