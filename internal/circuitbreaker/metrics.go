package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerHealthy is 1 when the breaker is closed, 0 when tripped.
	BreakerHealthy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_quality_breaker_healthy",
		Help: "Whether the data quality circuit breaker is healthy (1) or tripped (0)",
	})

	// BreakerRejectRatio tracks the rolling reject ratio.
	BreakerRejectRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_quality_breaker_reject_ratio",
		Help: "Rolling reject ratio over the breaker window",
	})

	// BreakerTripsTotal counts breaker trips.
	BreakerTripsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_quality_breaker_trips_total",
		Help: "Total number of data quality breaker trips",
	})
)
