package dashboard

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the refresh pipeline instruments.
type Metrics struct {
	Refreshes       *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	Notifications   prometheus.Counter
	Events          prometheus.Gauge
}

// NewMetrics creates the refresh instruments and registers them with reg
// when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metrobus",
			Subsystem: "analytics",
			Name:      "refreshes_total",
			Help:      "Snapshot refreshes by result.",
		}, []string{"result"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "metrobus",
			Subsystem: "analytics",
			Name:      "refresh_duration_seconds",
			Help:      "Time to fetch and aggregate the event log.",
			Buckets:   prometheus.DefBuckets,
		}),
		Notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metrobus",
			Subsystem: "analytics",
			Name:      "notifications_total",
			Help:      "Insert notifications received from the event store.",
		}),
		Events: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "metrobus",
			Subsystem: "analytics",
			Name:      "events",
			Help:      "Events in the latest snapshot.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Refreshes, m.RefreshDuration, m.Notifications, m.Events)
	}
	return m
}
