// Package metrics exposes Prometheus collectors for allocation, reconciliation and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coreseq "medseq/internal/core/sequence"
	"medseq/internal/domain/sequence"
)

const namespace = "medseq"

// Collector implements sequence.Metrics and records HTTP request metrics.
type Collector struct {
	allocations        *prometheus.CounterVec
	allocationDuration *prometheus.HistogramVec
	allocationAttempts prometheus.Histogram
	retries            *prometheus.CounterVec
	reconciles         *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge

	templates []string
	gatherer  prometheus.Gatherer
}

// otherCounter labels counters that match no known template, keeping
// caller-supplied names out of the label set.
const otherCounter = "other"

var _ sequence.Metrics = (*Collector)(nil)

// New registers all collectors with reg. Pass a fresh prometheus.NewRegistry() in tests.
// Counter labels are the templates a name matches, so the series count is
// bounded by len(templates)+1.
func New(reg *prometheus.Registry, templates ...string) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		allocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocations_total",
			Help:      "Identifier allocations partitioned by counter and outcome",
		}, []string{"counter", "outcome"}),
		allocationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "allocation_duration_seconds",
			Help:      "Allocation latency including retries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"counter"}),
		allocationAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "allocation_attempts",
			Help:      "Store attempts needed per allocation",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_retries_total",
			Help:      "Transient store failures retried by the allocator",
		}, []string{"counter"}),
		reconciles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Counter reconciliations partitioned by mode and outcome",
		}, []string{"counter", "mode", "outcome"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		httpInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		}),
		templates: templates,
		gatherer:  reg,
	}
}

func (c *Collector) counterLabel(name string) string {
	for _, tmpl := range c.templates {
		if coreseq.MatchesTemplate(tmpl, name) {
			return tmpl
		}
	}
	return otherCounter
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveAllocation implements sequence.Metrics.
func (c *Collector) ObserveAllocation(counter string, attempts int, elapsed time.Duration, err error) {
	label := c.counterLabel(counter)
	c.allocations.WithLabelValues(label, outcome(err)).Inc()
	c.allocationDuration.WithLabelValues(label).Observe(elapsed.Seconds())
	c.allocationAttempts.Observe(float64(attempts))
}

// ObserveRetry implements sequence.Metrics.
func (c *Collector) ObserveRetry(counter string) {
	c.retries.WithLabelValues(c.counterLabel(counter)).Inc()
}

// ObserveReconcile implements sequence.Metrics.
func (c *Collector) ObserveReconcile(counter string, mode coreseq.ReconcileMode, err error) {
	c.reconciles.WithLabelValues(c.counterLabel(counter), mode.String(), outcome(err)).Inc()
}

// RequestStarted marks an HTTP request in flight and returns the function that completes it.
func (c *Collector) RequestStarted() func(method, route string, status int) {
	start := time.Now()
	c.httpInFlight.Inc()
	return func(method, route string, status int) {
		c.httpInFlight.Dec()
		labels := prometheus.Labels{
			"method": method,
			"route":  route,
			"status": strconv.Itoa(status),
		}
		c.httpRequests.With(labels).Inc()
		c.httpDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
