package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	FramesConsumed  prometheus.Counter
	FramesProduced  prometheus.Counter
	TransformErrors prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Decoding metrics.
	SegmentsDecoded prometheus.Counter
	SegmentsDropped *prometheus.CounterVec // labels: tag, status={malformed,unsupported}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FramesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buoy_etl",
			Name:      "frames_consumed_total",
			Help:      "Total raw frames read from the source topic.",
		}),
		FramesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buoy_etl",
			Name:      "frames_produced_total",
			Help:      "Total decoded frames written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buoy_etl",
			Name:      "transform_errors_total",
			Help:      "Total frames that failed to decode entirely.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "buoy_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "buoy_etl",
			Name:      "batch_size",
			Help:      "Number of frames per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "buoy_etl",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		SegmentsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buoy_etl",
			Name:      "segments_decoded_total",
			Help:      "Total tagged segments decoded into records.",
		}),
		SegmentsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buoy_etl",
			Name:      "segments_dropped_total",
			Help:      "Tagged segments dropped during frame decoding, by tag and status.",
		}, []string{"tag", "status"}),
	}

	prometheus.MustRegister(
		m.FramesConsumed,
		m.FramesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.SegmentsDecoded,
		m.SegmentsDropped,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FramesConsumed:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "buoy_etl", Name: "frames_consumed_total"}),
		FramesProduced:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "buoy_etl", Name: "frames_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "buoy_etl", Name: "transform_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "buoy_etl", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "buoy_etl", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "buoy_etl", Name: "batch_processing_duration_seconds"}),
		SegmentsDecoded:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "buoy_etl", Name: "segments_decoded_total"}),
		SegmentsDropped:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "buoy_etl", Name: "segments_dropped_total"}, []string{"tag", "status"}),
	}
}
