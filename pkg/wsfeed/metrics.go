package wsfeed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks active feed connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_feed_active_connections",
		Help: "Number of active fill feed connections",
	})

	// ReconnectAttemptsTotal tracks reconnection attempts.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_feed_reconnect_attempts_total",
		Help: "Total number of fill feed reconnection attempts",
	})

	// ReconnectFailuresTotal tracks reconnection failures.
	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_feed_reconnect_failures_total",
		Help: "Total number of fill feed reconnection failures",
	})

	// FramesReceivedTotal tracks fill frames received by kind.
	FramesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_feed_frames_received_total",
			Help: "Total number of fill frames received",
		},
		[]string{"kind"},
	)

	// FillsReceivedTotal tracks fills delivered to the pipeline.
	FillsReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_feed_fills_received_total",
		Help: "Total number of fills delivered from the feed",
	})

	// FillsDroppedTotal tracks fills dropped due to a full channel.
	FillsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_feed_fills_dropped_total",
		Help: "Total number of fills dropped due to channel full",
	})

	// SubscriptionCount tracks active account subscriptions.
	SubscriptionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_feed_subscription_count",
		Help: "Number of active account subscriptions",
	})

	// ConnectionDuration tracks feed connection lifetime.
	ConnectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vigil_feed_connection_duration_seconds",
		Help:    "Duration of fill feed connections before disconnect",
		Buckets: []float64{60, 300, 600, 1800, 3600, 7200, 14400, 28800, 43200, 86400},
	})
)
