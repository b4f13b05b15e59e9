// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers enrollment and HTTP metrics.
type Collector struct {
	joins           *prometheus.CounterVec
	leaves          *prometheus.CounterVec
	conflictRetries prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpDuration    prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventplatform_joins_total",
			Help: "Join attempts by outcome (ok, already_enrolled, event_full, not_found, user_not_found, conflict, error).",
		}, []string{"outcome"}),
		leaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventplatform_leaves_total",
			Help: "Leave attempts by outcome (ok, not_enrolled, not_found, conflict, error).",
		}, []string{"outcome"}),
		conflictRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventplatform_enrollment_conflict_retries_total",
			Help: "Enrollment transactions restarted after losing the version check.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventplatform_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "status_code"}),
		httpDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "eventplatform_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.joins,
		c.leaves,
		c.conflictRetries,
		c.httpRequests,
		c.httpDuration,
	)

	return c
}

// RecordJoin counts a completed join attempt.
func (c *Collector) RecordJoin(outcome string) {
	c.joins.WithLabelValues(outcome).Inc()
}

// RecordLeave counts a completed leave attempt.
func (c *Collector) RecordLeave(outcome string) {
	c.leaves.WithLabelValues(outcome).Inc()
}

// RecordConflictRetry counts a transaction restart after a version conflict.
func (c *Collector) RecordConflictRetry() {
	c.conflictRetries.Inc()
}

// RecordHTTPRequest counts a finished HTTP request and observes its latency.
func (c *Collector) RecordHTTPRequest(method string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.Observe(duration.Seconds())
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
