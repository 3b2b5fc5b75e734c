// Package metrics provides Prometheus metrics for reelfix operations.
// Labels are bounded enums (operation, outcome, signature, check); file
// names never appear as labels.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

var (
	// OperationsTotal counts finished operations by kind and outcome.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelfix_operations_total",
		Help: "Total number of finished operations, by operation and outcome.",
	}, []string{"operation", "outcome"})

	// EncodeDuration observes wall time of encoder runs by operation.
	EncodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reelfix_encode_duration_seconds",
		Help:    "Wall time of external encoder runs, by operation.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"operation"})

	// DetectedErrorsTotal counts classified diagnostic lines by signature.
	DetectedErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelfix_detected_errors_total",
		Help: "Total number of classified diagnostic lines, by signature.",
	}, []string{"signature"})

	// VerificationChecksTotal counts verifier predicates by check and result.
	VerificationChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelfix_verification_checks_total",
		Help: "Total number of verification checks evaluated, by check and result.",
	}, []string{"check", "result"})

	// RepairVerdictsTotal counts repair outcomes by verdict.
	RepairVerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelfix_repair_verdicts_total",
		Help: "Total number of repair assessments, by verdict.",
	}, []string{"verdict"})

	// UploadBytesTotal counts bytes accepted by the upload server.
	UploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelfix_upload_bytes_total",
		Help: "Total number of uploaded bytes materialized to workspaces.",
	})

	// HTTPRequestDuration observes server latency by route pattern, method
	// and status code.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reelfix_http_request_duration_seconds",
		Help:    "Latency of HTTP requests, by route, method and status.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"route", "method", "status"})

	// InFlight tracks operations currently running.
	InFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reelfix_operations_in_flight",
		Help: "Number of operations currently running, by operation.",
	}, []string{"operation"})
)

// ObserveOperation records the outcome of one operation.
func ObserveOperation(op string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	OperationsTotal.WithLabelValues(op, outcome).Inc()
}

// ObserveEncode records one encoder run.
func ObserveEncode(op string, d time.Duration) {
	EncodeDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveHTTP records one served request.
func ObserveHTTP(route, method string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveCheck records one verifier predicate.
func ObserveCheck(check string, ok bool) {
	result := "pass"
	if !ok {
		result = "fail"
	}
	VerificationChecksTotal.WithLabelValues(check, result).Inc()
}

// Track increments InFlight for op and returns the matching decrement.
func Track(op string) func() {
	g := InFlight.WithLabelValues(op)
	g.Inc()
	return g.Dec
}
