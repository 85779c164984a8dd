package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WindowsComputedTotal tracks window recomputations.
	WindowsComputedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_aggregate_windows_computed_total",
		Help: "Total number of daily windows recomputed",
	})

	// BucketsWrittenTotal tracks daily buckets written through the store.
	BucketsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_aggregate_buckets_written_total",
		Help: "Total number of daily buckets written",
	})

	// ComputeDurationSeconds tracks window computation latency.
	ComputeDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vigil_aggregate_compute_duration_seconds",
		Help:    "Duration of one window recomputation",
		Buckets: prometheus.DefBuckets,
	})
)
