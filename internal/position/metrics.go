package position

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FillsProcessedTotal tracks fills applied to the state machine.
	FillsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_position_fills_processed_total",
		Help: "Total number of fills applied to position state",
	})

	// TradesEmittedTotal tracks closed trades emitted.
	TradesEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_position_trades_emitted_total",
		Help: "Total number of closed round-trip trades emitted",
	})

	// PositionFlipsTotal tracks sign-flipping transitions.
	PositionFlipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_position_flips_total",
		Help: "Total number of position sign flips",
	})

	// OutOfOrderFillsTotal tracks fills rejected for ordering violations.
	OutOfOrderFillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_position_out_of_order_fills_total",
		Help: "Total number of fills arriving out of order for their key",
	})

	// InconsistentTagsTotal tracks source tags disagreeing with computed transitions.
	InconsistentTagsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_position_inconsistent_tags_total",
		Help: "Total number of fills whose source direction or closedPnl disagreed with position arithmetic",
	})

	// OpenPositions tracks currently open (account, instrument) positions.
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_position_open_positions",
		Help: "Number of currently open positions across all keys",
	})
)
