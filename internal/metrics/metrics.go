// Package metrics defines the Prometheus collectors exported by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors registered for one server instance.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SnapshotCache       *prometheus.CounterVec
	SnapshotFailures    prometheus.Counter
	RateLimited         prometheus.Counter
	BookingOutcomes     *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "masjid_http_requests_total",
				Help: "HTTP requests by method, route pattern and status code.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "masjid_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route pattern.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SnapshotCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "masjid_availability_snapshot_cache_total",
				Help: "Availability snapshot cache lookups by result.",
			},
			[]string{"result"},
		),
		SnapshotFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "masjid_availability_snapshot_failures_total",
			Help: "Occupancy fetches that failed.",
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "masjid_booking_rate_limited_total",
			Help: "Reservation submissions refused by the rate limiter.",
		}),
		BookingOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "masjid_booking_outcomes_total",
				Help: "Reservation and activity writes by operation and error kind.",
			},
			[]string{"operation", "outcome"},
		),
	}
}

// SnapshotCacheHit records a snapshot served from memory.
func (m *Metrics) SnapshotCacheHit() {
	m.SnapshotCache.WithLabelValues("hit").Inc()
}

// SnapshotCacheMiss records a snapshot that had to be fetched.
func (m *Metrics) SnapshotCacheMiss() {
	m.SnapshotCache.WithLabelValues("miss").Inc()
}

// SnapshotFetchFailed records a failed occupancy fetch.
func (m *Metrics) SnapshotFetchFailed() {
	m.SnapshotFailures.Inc()
}

// RecordRateLimited records a refused submission.
func (m *Metrics) RecordRateLimited() {
	m.RateLimited.Inc()
}

// RecordBooking records the outcome of a write. An empty outcome counts as "ok".
func (m *Metrics) RecordBooking(operation, outcome string) {
	if outcome == "" {
		outcome = "ok"
	}
	m.BookingOutcomes.WithLabelValues(operation, outcome).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}
