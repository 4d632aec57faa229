package rotation

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rotationStartedTotal   *prometheus.CounterVec
	rotationCompletedTotal *prometheus.CounterVec
	rotationDuration       *prometheus.HistogramVec

	metricsOnce       sync.Once
	metricsRegistered bool
)

// InitMetrics initializes all Prometheus metrics. Lifecycle runs record
// into them only once this has been called; otherwise recording is a no-op.
func InitMetrics() {
	metricsOnce.Do(func() {
		rotationStartedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyops_rotation_started_total",
				Help: "Total number of credential rotations started",
			},
			[]string{"credential"},
		)

		rotationCompletedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyops_rotation_completed_total",
				Help: "Total number of credential rotations completed",
			},
			[]string{"credential", "status"},
		)

		rotationDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keyops_rotation_duration_seconds",
				Help:    "Duration of credential rotations in seconds (includes operator input time)",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"credential"},
		)

		metricsRegistered = true
	})
}

func recordRotationStarted(credential string) {
	if !metricsRegistered {
		return
	}
	rotationStartedTotal.WithLabelValues(credential).Inc()
}

func recordRotationCompleted(credential, status string, elapsed time.Duration) {
	if !metricsRegistered {
		return
	}
	rotationCompletedTotal.WithLabelValues(credential, status).Inc()
	rotationDuration.WithLabelValues(credential).Observe(elapsed.Seconds())
}
