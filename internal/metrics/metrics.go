// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rcpt_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rcpt_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// StoreOperations counts record store calls by operation and result
	// (ok, not_found, error).
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rcpt_store_operations_total",
			Help: "Record store operations by operation and result.",
		},
		[]string{"op", "result"},
	)

	CheckIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rcpt_checkins_total",
		Help: "Visitor check-ins appended since process start.",
	})
)

// ObserveStore records the outcome of one store operation.
func ObserveStore(op string, found bool, err error) {
	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case !found:
		result = "not_found"
	}
	StoreOperations.WithLabelValues(op, result).Inc()
}
