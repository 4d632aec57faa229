package expiry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	daysRemainingGauge *prometheus.GaugeVec
	deadlineStatus     prometheus.Gauge

	metricsOnce       sync.Once
	metricsRegistered bool
)

// Numeric status values exported for alerting rules.
const (
	statusCodeCurrent  = 0
	statusCodeNotice   = 1
	statusCodeCritical = 2
	statusCodeExpired  = 3
)

// InitMetrics initializes all Prometheus metrics.
// Called once at startup when the watch mode's metrics server is enabled.
func InitMetrics() {
	metricsOnce.Do(func() {
		daysRemainingGauge = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "keyops_expiry_days_remaining",
				Help: "Days remaining until a credential (or the global deadline) must be rotated",
			},
			[]string{"credential"},
		)

		deadlineStatus = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "keyops_rotation_deadline_status",
				Help: "Global rotation deadline status (0=current, 1=notice, 2=critical, 3=expired)",
			},
		)

		metricsRegistered = true
	})
}

// globalCredentialLabel is the label value for the ledger-wide deadline.
const globalCredentialLabel = "_global"

// RecordReport publishes the global deadline evaluation.
func RecordReport(r Report) {
	if !metricsRegistered {
		return
	}
	daysRemainingGauge.WithLabelValues(globalCredentialLabel).Set(float64(r.DaysRemaining))
	deadlineStatus.Set(float64(statusCode(r.Status)))
}

// RecordCredential publishes one credential's days remaining.
func RecordCredential(r CredentialReport) {
	if !metricsRegistered {
		return
	}
	daysRemainingGauge.WithLabelValues(r.Name).Set(float64(r.DaysRemaining))
}

func statusCode(s Status) int {
	switch s {
	case StatusExpired:
		return statusCodeExpired
	case StatusCritical:
		return statusCodeCritical
	case StatusNotice:
		return statusCodeNotice
	default:
		return statusCodeCurrent
	}
}
