package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements the ingestion Metrics interface using Prometheus.
type Recorder struct {
	ticksStored *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	lastPrice   *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
	bufferDepth prometheus.Gauge
}

// New registers the ingestion collectors on reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		ticksStored: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairlab_ticks_stored_total",
				Help: "Ticks handed to the storage backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairlab_errors_total",
				Help: "Errors encountered, by kind",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pairlab_last_price",
				Help: "Last observed trade price",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pairlab_operation_duration_seconds",
				Help:    "Duration of ingestion operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		bufferDepth: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "pairlab_tick_buffer_depth",
				Help: "Ticks waiting in the write buffer",
			},
		),
	}
}

// RecordTicksStored counts n ticks written for symbol.
func (r *Recorder) RecordTicksStored(backend, symbol string, n int) {
	r.ticksStored.WithLabelValues(backend, symbol).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordBufferDepth sets the current buffer depth.
func (r *Recorder) RecordBufferDepth(n int) {
	r.bufferDepth.Set(float64(n))
}
