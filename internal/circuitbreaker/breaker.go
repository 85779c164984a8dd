package circuitbreaker

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// QualityCircuitBreaker monitors the normalization reject rate of
// incoming fill batches and trips when the rolling rate crosses a
// threshold. Hysteresis prevents rapid state changes: once tripped, the
// rate must fall below trip/hysteresis before the breaker closes again.
//
// A tripped breaker signals degraded upstream data. The caller decides
// what to do with that signal; readiness probes are the usual consumer.
type QualityCircuitBreaker struct {
	healthy atomic.Bool // Atomic for lock-free reads

	// Configuration
	windowSize      int     // Rolling window of batch samples
	maxRejectRatio  float64 // Trip above this rolling ratio
	hysteresisRatio float64 // Close again below max/hysteresis
	minSample       int     // Minimum fills in window before judging
	logger          *zap.Logger

	// Protected by mutex
	mu       sync.RWMutex
	batches  []batchSample // Rolling window, oldest first
	lastTrip time.Time
}

type batchSample struct {
	total    int
	rejected int
}

// Config holds circuit breaker configuration.
type Config struct {
	WindowSize      int
	MaxRejectRatio  float64
	HysteresisRatio float64
	MinSample       int
	Logger          *zap.Logger
}

// Status holds current circuit breaker status for debugging.
type Status struct {
	Healthy        bool
	RejectRatio    float64
	WindowFills    int
	WindowRejected int
	LastTrip       time.Time
}

// New creates a new circuit breaker with the given configuration.
func New(cfg *Config) (*QualityCircuitBreaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}
	if cfg.MaxRejectRatio <= 0 || cfg.MaxRejectRatio > 1 {
		return nil, fmt.Errorf("max reject ratio must be in (0, 1]")
	}
	if cfg.HysteresisRatio < 1.0 {
		return nil, fmt.Errorf("hysteresis ratio must be >= 1.0")
	}

	breaker := &QualityCircuitBreaker{
		windowSize:      cfg.WindowSize,
		maxRejectRatio:  cfg.MaxRejectRatio,
		hysteresisRatio: cfg.HysteresisRatio,
		minSample:       cfg.MinSample,
		logger:          cfg.Logger,
		batches:         make([]batchSample, 0, cfg.WindowSize),
	}

	// Start healthy by default
	breaker.healthy.Store(true)

	BreakerHealthy.Set(1)
	BreakerRejectRatio.Set(0)

	return breaker, nil
}

// IsHealthy returns true if the reject rate is within bounds.
// This is lock-free and safe to call from hot paths.
func (b *QualityCircuitBreaker) IsHealthy() bool {
	return b.healthy.Load()
}

// RecordBatch feeds one batch outcome into the rolling window and
// re-evaluates the breaker state.
func (b *QualityCircuitBreaker) RecordBatch(total, rejected int) {
	if total <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.batches = append(b.batches, batchSample{total: total, rejected: rejected})
	if len(b.batches) > b.windowSize {
		b.batches = b.batches[1:]
	}

	fills, rejects := b.windowTotalsLocked()
	if fills < b.minSample {
		return
	}

	ratio := float64(rejects) / float64(fills)
	BreakerRejectRatio.Set(ratio)

	if b.healthy.Load() {
		if ratio > b.maxRejectRatio {
			b.healthy.Store(false)
			b.lastTrip = time.Now()
			BreakerHealthy.Set(0)
			BreakerTripsTotal.Inc()
			b.logger.Warn("quality-breaker-tripped",
				zap.Float64("reject-ratio", ratio),
				zap.Float64("threshold", b.maxRejectRatio),
				zap.Int("window-fills", fills))
		}
		return
	}

	if ratio < b.maxRejectRatio/b.hysteresisRatio {
		b.healthy.Store(true)
		BreakerHealthy.Set(1)
		b.logger.Info("quality-breaker-recovered",
			zap.Float64("reject-ratio", ratio),
			zap.Duration("tripped-for", time.Since(b.lastTrip)))
	}
}

// GetStatus returns the current breaker state for debugging.
func (b *QualityCircuitBreaker) GetStatus() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	fills, rejects := b.windowTotalsLocked()
	ratio := 0.0
	if fills > 0 {
		ratio = float64(rejects) / float64(fills)
	}

	return Status{
		Healthy:        b.healthy.Load(),
		RejectRatio:    ratio,
		WindowFills:    fills,
		WindowRejected: rejects,
		LastTrip:       b.lastTrip,
	}
}

func (b *QualityCircuitBreaker) windowTotalsLocked() (fills, rejects int) {
	for _, s := range b.batches {
		fills += s.total
		rejects += s.rejected
	}
	return fills, rejects
}
