package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for repository operation metrics.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Metrics contains all Prometheus metrics for structstore. Repository
// operations are labeled by entity, operation, and outcome; HTTP requests by
// method, route, and status. Everything registers via promauto under the
// given namespace.
type Metrics struct {
	// OperationsTotal counts repository operations by entity, operation, and outcome.
	OperationsTotal *prometheus.CounterVec

	// OperationDuration observes repository operation latency in seconds by
	// entity and operation.
	OperationDuration *prometheus.HistogramVec

	// RowsReturned observes the number of rows returned by filtered reads.
	RowsReturned *prometheus.HistogramVec

	// HTTPRequestsTotal counts HTTP requests by method, route, and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes HTTP request latency in seconds by method and route.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance with all metrics initialized under
// the given namespace. promauto registers with the default registry, so each
// namespace may only be instantiated once per process.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repository_operations_total",
			Help:      "Total repository operations by entity, operation, and outcome.",
		}, []string{"entity", "operation", "outcome"}),

		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "repository_operation_duration_seconds",
			Help:      "Repository operation latency in seconds.",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"entity", "operation"}),

		RowsReturned: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "repository_rows_returned",
			Help:      "Rows returned per filtered read.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"entity"}),

		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "route"}),
	}
}

// RecordOperation records one repository operation with its outcome and
// duration in seconds.
func (m *Metrics) RecordOperation(entity, operation, outcome string, seconds float64) {
	m.OperationsTotal.WithLabelValues(entity, operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(entity, operation).Observe(seconds)
}

// RecordRows records the row count of a filtered read.
func (m *Metrics) RecordRows(entity string, rows int) {
	m.RowsReturned.WithLabelValues(entity).Observe(float64(rows))
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}
