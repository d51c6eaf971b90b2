package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	gradingRequestsTotal  *prometheus.CounterVec
	gradingLatencySeconds *prometheus.HistogramVec
	gradingErrorsTotal    *prometheus.CounterVec
	gradingBatchesTotal   *prometheus.CounterVec
	slotsReconciledTotal  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the grading API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		gradingRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_requests_total",
			Help: "Total number of grading API requests served.",
		}, []string{"method", "route", "status"})

		gradingLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grading_latency_seconds",
			Help:    "Latency distribution for grading API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		gradingErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_errors_total",
			Help: "Total number of error responses returned by grading endpoints.",
		}, []string{"method", "route", "status"})

		gradingBatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_batches_total",
			Help: "Grade batches by grader role and outcome.",
		}, []string{"role", "outcome"})

		slotsReconciledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_slots_reconciled_total",
			Help: "Slots that reached a new final grade.",
		}, []string{"role"})

		prometheus.MustRegister(
			gradingRequestsTotal,
			gradingLatencySeconds,
			gradingErrorsTotal,
			gradingBatchesTotal,
			slotsReconciledTotal,
		)
	})
}

// GradingRequests exposes the counter for grading requests.
func GradingRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingRequestsTotal
}

// GradingLatency exposes the latency histogram for grading requests.
func GradingLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return gradingLatencySeconds
}

// GradingErrors exposes the counter for grading error responses.
func GradingErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingErrorsTotal
}

// GradingBatches counts submitted batches by role and outcome.
func GradingBatches() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingBatchesTotal
}

// SlotsReconciled counts slots that newly reached a final grade.
func SlotsReconciled() *prometheus.CounterVec {
	RegisterMetrics()
	return slotsReconciledTotal
}
