package dashboard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics mirrors dashboard state into Prometheus collectors.
type Metrics struct {
	VerificationsTotal   *prometheus.CounterVec
	ObjectiveHealth      *prometheus.GaugeVec
	ObjectiveDeviation   *prometheus.GaugeVec
	AlertsTotal          *prometheus.CounterVec
	ApprovalRate         prometheus.Gauge
	VerificationDuration prometheus.Histogram
}

// NewMetrics registers the dashboard collectors on reg. Passing nil uses
// the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		VerificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "objectivegate",
			Name:      "verifications_total",
			Help:      "Completed verifications by verdict.",
		}, []string{"verdict"}),
		ObjectiveHealth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "objectivegate",
			Name:      "objective_health",
			Help:      "Objective health: 0 healthy, 1 warning, 2 critical.",
		}, []string{"objective"}),
		ObjectiveDeviation: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "objectivegate",
			Name:      "objective_deviation",
			Help:      "Relative deviation of current value from target.",
		}, []string{"objective"}),
		AlertsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "objectivegate",
			Name:      "alerts_total",
			Help:      "Alerts raised by severity.",
		}, []string{"severity"}),
		ApprovalRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "objectivegate",
			Name:      "approval_rate_percent",
			Help:      "Approval rate over the recent verification window.",
		}),
		VerificationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "objectivegate",
			Name:      "verification_duration_seconds",
			Help:      "End-to-end duration of one verification call.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func healthGaugeValue(h string) float64 {
	switch h {
	case "warning":
		return 1
	case "critical":
		return 2
	default:
		return 0
	}
}
