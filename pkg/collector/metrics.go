// pkg/collector/metrics.go

package collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the collector's Prometheus instruments.
type Metrics struct {
	Cycles        *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	LastCycle     prometheus.Gauge
	FetchErrors   *prometheus.CounterVec
	Detected      *prometheus.CounterVec
	Suppressed    *prometheus.CounterVec
	Persisted     prometheus.Counter
	Notifications *prometheus.CounterVec
}

// NewMetrics creates the instruments and registers them with reg. A nil
// registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vigil",
			Name:      "collection_cycles_total",
			Help:      "Collection cycles run, by wake reason.",
		}, []string{"reason"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vigil",
			Name:      "collection_cycle_duration_seconds",
			Help:      "Wall time of one collection cycle.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		LastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vigil",
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the last collection cycle finished.",
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vigil",
			Name:      "fetch_errors_total",
			Help:      "Failed log fetches, by server.",
		}, []string{"server"}),
		Detected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vigil",
			Name:      "alerts_detected_total",
			Help:      "Alerts produced by the classifier before suppression.",
		}, []string{"server", "rule"}),
		Suppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vigil",
			Name:      "alerts_suppressed_total",
			Help:      "Alerts dropped by the ignore list, exceptions or noise filter.",
		}, []string{"reason"}),
		Persisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vigil",
			Name:      "alerts_persisted_total",
			Help:      "Alerts written to the store.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vigil",
			Name:      "notifications_total",
			Help:      "Notification attempts, by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Cycles, m.CycleDuration, m.LastCycle, m.FetchErrors,
			m.Detected, m.Suppressed, m.Persisted, m.Notifications,
		)
	}
	return m
}
