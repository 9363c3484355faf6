package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for reservation operations.
const (
	OutcomeSuccess            = "success"
	OutcomeCapacityExceeded   = "capacity_exceeded"
	OutcomePricingUnavailable = "pricing_unavailable"
	OutcomeConflict           = "conflict"
	OutcomeTimeout            = "timeout"
	OutcomeInvalid            = "invalid"
	OutcomeError              = "error"
)

var (
	reservationOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_operations_total",
			Help: "Reservation engine operations by kind and outcome",
		},
		[]string{"operation", "outcome"},
	)

	availabilityChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "availability_checks_total",
			Help: "Availability checks by result",
		},
		[]string{"result"},
	)

	commitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reservation_commit_duration_seconds",
			Help:    "Duration of serializable reservation transactions",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"operation"},
	)
)

// Recorder records reservation engine metrics. The zero value is ready to use.
type Recorder struct{}

// NewRecorder returns a Recorder backed by the default registry.
func NewRecorder() *Recorder { return &Recorder{} }

// ObserveOperation counts one operation outcome.
func (r *Recorder) ObserveOperation(operation, outcome string) {
	reservationOperations.WithLabelValues(operation, outcome).Inc()
}

// ObserveCommit records how long a transaction took.
func (r *Recorder) ObserveCommit(operation string, d time.Duration) {
	commitDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveAvailability counts an availability check result.
func (r *Recorder) ObserveAvailability(available bool) {
	result := "unavailable"
	if available {
		result = "available"
	}
	availabilityChecks.WithLabelValues(result).Inc()
}

// RegisterRoutes exposes /metrics.
func RegisterRoutes(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
