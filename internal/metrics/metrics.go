// Package metrics provides Prometheus instrumentation for the matching engine.
// All recording methods are safe on a nil *Metrics so components can run
// without instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultNamespace = "skill_matcher"

	StatusOK    = "ok"
	StatusError = "error"
)

var defaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

type Metrics struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	indexRequests   *prometheus.CounterVec
	indexLatency    *prometheus.HistogramVec
	extractions     *prometheus.CounterVec
	emittedMatches  *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpRequestTime *prometheus.HistogramVec
}

func New(opts ...Option) *Metrics {
	m := &Metrics{
		namespace: defaultNamespace,
		buckets:   defaultBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	factory := promauto.With(m.registry)

	m.indexRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "index",
		Name:      "requests_total",
		Help:      "Index round trips by operation and outcome.",
	}, []string{"operation", "status"})

	m.indexLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "index",
		Name:      "request_duration_seconds",
		Help:      "Index round trip latency by operation.",
		Buckets:   m.buckets,
	}, []string{"operation"})

	m.extractions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "extraction",
		Name:      "documents_total",
		Help:      "CV text extractions by MIME type and outcome.",
	}, []string{"mime_type", "status"})

	m.emittedMatches = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "matching",
		Name:      "emitted_results",
		Help:      "Number of matchings emitted per request.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	}, []string{"kind"})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	m.httpRequestTime = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   m.buckets,
	}, []string{"route", "method"})

	return m
}

// ObserveIndexRequest records one index round trip.
func (m *Metrics) ObserveIndexRequest(operation string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.indexRequests.WithLabelValues(operation, status(err)).Inc()
	m.indexLatency.WithLabelValues(operation).Observe(took.Seconds())
}

// RecordExtraction records one document extraction attempt.
func (m *Metrics) RecordExtraction(mimeType string, err error) {
	if m == nil {
		return
	}
	if mimeType == "" {
		mimeType = "unknown"
	}
	m.extractions.WithLabelValues(mimeType, status(err)).Inc()
}

// ObserveEmitted records how many results a matching request produced.
func (m *Metrics) ObserveEmitted(kind string, count int) {
	if m == nil {
		return
	}
	m.emittedMatches.WithLabelValues(kind).Observe(float64(count))
}

// ObserveHTTPRequest records one served HTTP request.
func (m *Metrics) ObserveHTTPRequest(route, method string, code int, took time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpRequestTime.WithLabelValues(route, method).Observe(took.Seconds())
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
