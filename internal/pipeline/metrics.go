package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BatchesProcessedTotal tracks completed pipeline batches.
	BatchesProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_pipeline_batches_processed_total",
		Help: "Total number of fill batches processed end to end",
	})

	// BatchDurationSeconds tracks end-to-end batch latency.
	BatchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vigil_pipeline_batch_duration_seconds",
		Help:    "Duration of one end-to-end pipeline batch",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	// KeysReplayedTotal tracks keys replayed after late fills.
	KeysReplayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_pipeline_keys_replayed_total",
		Help: "Total number of position keys replayed due to out-of-order fills",
	})
)
