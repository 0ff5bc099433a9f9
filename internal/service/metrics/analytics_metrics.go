package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Analytics records latency and failures per analytics operation.
type Analytics struct {
	latency *prometheus.HistogramVec
	errors  *prometheus.CounterVec
	alerts  prometheus.Counter
}

// NewAnalytics registers the analytics vectors on reg.
func NewAnalytics(reg prometheus.Registerer) *Analytics {
	f := promauto.With(reg)
	return &Analytics{
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pairlab",
			Subsystem: "analytics",
			Name:      "latency_seconds",
			Help:      "Latency of analytics operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pairlab",
			Subsystem: "analytics",
			Name:      "errors_total",
			Help:      "Failed analytics operations",
		}, []string{"op"}),
		alerts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "pairlab",
			Subsystem: "analytics",
			Name:      "alerts_triggered_total",
			Help:      "Alerts whose rule matched",
		}),
	}
}

// Observe records one operation that started at start.
func (a *Analytics) Observe(op string, start time.Time, err error) {
	if a == nil {
		return
	}
	a.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		a.errors.WithLabelValues(op).Inc()
	}
}

// AlertsTriggered counts matched alerts.
func (a *Analytics) AlertsTriggered(n int) {
	if a == nil || n <= 0 {
		return
	}
	a.alerts.Add(float64(n))
}
