package profile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProfilesBuiltTotal tracks lifetime profile rollups.
	ProfilesBuiltTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_profile_profiles_built_total",
		Help: "Total number of trader profiles built",
	})

	// ProfileSpanDays tracks the calendar span of built profiles.
	ProfileSpanDays = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vigil_profile_span_days",
		Help:    "Calendar days between first and last active day of built profiles",
		Buckets: []float64{1, 2, 7, 14, 30, 60, 90, 180, 365, 730},
	})
)
