package classify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ClassificationsTotal tracks assigned tags.
var ClassificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vigil_classify_classifications_total",
		Help: "Total number of profiles classified, by tag",
	},
	[]string{"tag"},
)
