package circuitbreaker

import (
	"testing"

	"go.uber.org/zap"
)

func newBreaker(t *testing.T, cfg Config) *QualityCircuitBreaker {
	t.Helper()

	if cfg.Logger == nil {
		cfg.Logger, _ = zap.NewDevelopment()
	}

	breaker, err := New(&cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return breaker
}

func TestNew_Validation(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name: "valid",
			cfg: &Config{
				WindowSize:      10,
				MaxRejectRatio:  0.25,
				HysteresisRatio: 2.0,
				MinSample:       100,
				Logger:          logger,
			},
			wantErr: false,
		},
		{
			name:    "nil_config",
			cfg:     nil,
			wantErr: true,
		},
		{
			name: "nil_logger",
			cfg: &Config{
				WindowSize:      10,
				MaxRejectRatio:  0.25,
				HysteresisRatio: 2.0,
			},
			wantErr: true,
		},
		{
			name: "zero_window",
			cfg: &Config{
				WindowSize:      0,
				MaxRejectRatio:  0.25,
				HysteresisRatio: 2.0,
				Logger:          logger,
			},
			wantErr: true,
		},
		{
			name: "ratio_above_one",
			cfg: &Config{
				WindowSize:      10,
				MaxRejectRatio:  1.5,
				HysteresisRatio: 2.0,
				Logger:          logger,
			},
			wantErr: true,
		},
		{
			name: "hysteresis_below_one",
			cfg: &Config{
				WindowSize:      10,
				MaxRejectRatio:  0.25,
				HysteresisRatio: 0.5,
				Logger:          logger,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecordBatch_TripsOnHighRejectRate(t *testing.T) {
	breaker := newBreaker(t, Config{
		WindowSize:      10,
		MaxRejectRatio:  0.25,
		HysteresisRatio: 2.0,
		MinSample:       100,
	})

	if !breaker.IsHealthy() {
		t.Fatal("breaker should start healthy")
	}

	// 50% rejects over 200 fills, well past the sample floor
	breaker.RecordBatch(200, 100)

	if breaker.IsHealthy() {
		t.Error("breaker should trip at 50% reject rate")
	}

	status := breaker.GetStatus()
	if status.RejectRatio != 0.5 {
		t.Errorf("RejectRatio = %f, want 0.5", status.RejectRatio)
	}
	if status.LastTrip.IsZero() {
		t.Error("LastTrip should be set after trip")
	}
}

func TestRecordBatch_MinSampleGating(t *testing.T) {
	breaker := newBreaker(t, Config{
		WindowSize:      10,
		MaxRejectRatio:  0.25,
		HysteresisRatio: 2.0,
		MinSample:       100,
	})

	// 100% rejects, but only 10 fills in the window
	breaker.RecordBatch(10, 10)

	if !breaker.IsHealthy() {
		t.Error("breaker should not judge below the minimum sample")
	}

	// Pushing the window past the floor makes the rate count
	breaker.RecordBatch(90, 90)

	if breaker.IsHealthy() {
		t.Error("breaker should trip once the window reaches the sample floor")
	}
}

func TestRecordBatch_HysteresisRecovery(t *testing.T) {
	breaker := newBreaker(t, Config{
		WindowSize:      4,
		MaxRejectRatio:  0.25,
		HysteresisRatio: 2.0,
		MinSample:       10,
	})

	breaker.RecordBatch(100, 50)
	if breaker.IsHealthy() {
		t.Fatal("breaker should be tripped")
	}

	// Rolling ratio falls to ~0.17 — below trip but above trip/hysteresis
	// (0.125), so the breaker stays open.
	breaker.RecordBatch(100, 0)
	breaker.RecordBatch(100, 0)
	if breaker.IsHealthy() {
		t.Error("breaker should hold open inside the hysteresis band")
	}

	// Bad batch rolls out of the window, ratio drops to 0
	breaker.RecordBatch(100, 0)
	breaker.RecordBatch(100, 0)
	if !breaker.IsHealthy() {
		t.Error("breaker should recover once the ratio clears the hysteresis floor")
	}
}

func TestRecordBatch_WindowEviction(t *testing.T) {
	breaker := newBreaker(t, Config{
		WindowSize:      2,
		MaxRejectRatio:  0.25,
		HysteresisRatio: 1.0,
		MinSample:       1,
	})

	breaker.RecordBatch(100, 100)
	breaker.RecordBatch(100, 0)
	breaker.RecordBatch(100, 0)

	status := breaker.GetStatus()
	if status.WindowFills != 200 {
		t.Errorf("WindowFills = %d, want 200 after eviction", status.WindowFills)
	}
	if status.WindowRejected != 0 {
		t.Errorf("WindowRejected = %d, want 0 after bad batch evicted", status.WindowRejected)
	}
}

func TestRecordBatch_IgnoresEmptyBatches(t *testing.T) {
	breaker := newBreaker(t, Config{
		WindowSize:      10,
		MaxRejectRatio:  0.25,
		HysteresisRatio: 2.0,
		MinSample:       1,
	})

	breaker.RecordBatch(0, 0)
	breaker.RecordBatch(-5, 0)

	status := breaker.GetStatus()
	if status.WindowFills != 0 {
		t.Errorf("WindowFills = %d, want 0", status.WindowFills)
	}
	if !breaker.IsHealthy() {
		t.Error("breaker should stay healthy with no data")
	}
}
