package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FillsNormalizedTotal tracks fills accepted by the normalizer.
	FillsNormalizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_ingest_fills_normalized_total",
		Help: "Total number of raw fills normalized successfully",
	})

	// FillsRejectedTotal tracks rejected fills by reason.
	FillsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_ingest_fills_rejected_total",
			Help: "Total number of raw fills rejected by the normalizer",
		},
		[]string{"reason"},
	)

	// FilesReadTotal tracks jsonl files read.
	FilesReadTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_ingest_files_read_total",
		Help: "Total number of fill files read",
	})

	// LinesSkippedTotal tracks undecodable jsonl lines.
	LinesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_ingest_lines_skipped_total",
		Help: "Total number of undecodable fill lines skipped",
	})
)
