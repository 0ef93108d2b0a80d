package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the inference pipeline.
type Metrics struct {
	PredictRequests  *prometheus.CounterVec
	InferenceLatency *prometheus.HistogramVec
	ModelFallbacks   *prometheus.CounterVec
	SinkQueueDepth   prometheus.Gauge
	SinkDropped      prometheus.Counter
	SinkWriteErrors  *prometheus.CounterVec
}

// NewMetrics creates and registers the Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		PredictRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskd_predict_requests_total",
				Help: "Total prediction requests by score source and result.",
			},
			[]string{"source", "result"},
		),
		InferenceLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "riskd_inference_latency_seconds",
				Help: "End-to-end inference latency (extraction through scoring).",
				// The response budget is 100ms; buckets concentrate below it.
				Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"source"},
		),
		ModelFallbacks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskd_model_fallbacks_total",
				Help: "Remote inference failures recovered by the rule-based scorer.",
			},
			[]string{"reason"},
		),
		SinkQueueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "riskd_sink_queue_depth",
				Help: "Current depth of the persistence queue.",
			},
		),
		SinkDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "riskd_sink_dropped_jobs_total",
				Help: "Persistence jobs dropped because the queue was full.",
			},
		),
		SinkWriteErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskd_sink_write_errors_total",
				Help: "Best-effort persistence write failures by store.",
			},
			[]string{"store"},
		),
	}
}

// RecordPredict records the outcome and latency of one prediction request.
func (m *Metrics) RecordPredict(source, result string, duration time.Duration) {
	m.PredictRequests.WithLabelValues(source, result).Inc()
	m.InferenceLatency.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordFallback counts a remote-inference failure recovered locally.
func (m *Metrics) RecordFallback(reason string) {
	m.ModelFallbacks.WithLabelValues(reason).Inc()
}

// RecordSinkWriteError counts a best-effort persistence failure.
func (m *Metrics) RecordSinkWriteError(store string) {
	m.SinkWriteErrors.WithLabelValues(store).Inc()
}
