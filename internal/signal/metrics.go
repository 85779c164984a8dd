package signal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SignalsComputedTotal tracks asset signal buckets produced.
var SignalsComputedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vigil_signal_signals_computed_total",
	Help: "Total number of asset signal buckets computed",
})
