package classify

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
)

func TestClassify(t *testing.T) {
	c := New(DefaultThresholds())

	tests := []struct {
		name    string
		profile *types.TraderProfile
		want    types.Classification
	}{
		{
			name: "liquidator",
			profile: &types.TraderProfile{
				TotalFills:       100,
				LiquidationFills: 25,
				TotalVolume:      decimal.RequireFromString("1000"),
				NetPnl:           decimal.Zero,
				TotalFees:        decimal.Zero,
			},
			want: types.TagLiquidator,
		},
		{
			name: "hft-high-maker-thin-edge",
			profile: &types.TraderProfile{
				TotalFills:  100000,
				MakerPct:    0.92,
				MtmTV:       0.0002,
				TotalVolume: decimal.RequireFromString("50000000"),
				NetPnl:      decimal.RequireFromString("10000"),
				TotalFees:   decimal.Zero,
			},
			want: types.TagHFT,
		},
		{
			name: "hft-negative-edge-still-hft",
			profile: &types.TraderProfile{
				TotalFills:  100000,
				MakerPct:    0.80,
				MtmTV:       -0.0005,
				TotalVolume: decimal.RequireFromString("50000000"),
				NetPnl:      decimal.RequireFromString("-25000"),
				TotalFees:   decimal.Zero,
			},
			want: types.TagHFT,
		},
		{
			name: "smart-directional",
			profile: &types.TraderProfile{
				TotalFills:  500,
				MakerPct:    0.10,
				MtmTV:       0.005,
				RiskRatio:   2.5,
				TotalVolume: decimal.RequireFromString("40000000"),
				NetPnl:      decimal.RequireFromString("200000"),
				TotalFees:   decimal.Zero,
			},
			want: types.TagSmartDirectional,
		},
		{
			name: "smart-fails-on-risk-ratio",
			profile: &types.TraderProfile{
				TotalFills:  500,
				MtmTV:       0.005,
				RiskRatio:   0.5,
				TotalVolume: decimal.RequireFromString("40000000"),
				NetPnl:      decimal.RequireFromString("200000"),
				TotalFees:   decimal.Zero,
			},
			want: types.TagRetail,
		},
		{
			name: "retail-default",
			profile: &types.TraderProfile{
				TotalFills:  50,
				MakerPct:    0.30,
				MtmTV:       -0.01,
				TotalVolume: decimal.RequireFromString("10000"),
				NetPnl:      decimal.RequireFromString("-100"),
				TotalFees:   decimal.Zero,
			},
			want: types.TagRetail,
		},
		{
			name: "zero-fills-never-liquidator",
			profile: &types.TraderProfile{
				TotalVolume: decimal.Zero,
				NetPnl:      decimal.Zero,
				TotalFees:   decimal.Zero,
			},
			want: types.TagRetail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.profile); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

// A profile engineered to satisfy every rule at once must take the first
// tag in the chain, and keep taking it on repeat evaluations.
func TestClassify_FirstMatchWins(t *testing.T) {
	c := New(DefaultThresholds())

	conflicted := &types.TraderProfile{
		TotalFills:       1000,
		LiquidationFills: 300,  // liquidator rule matches
		MakerPct:         0.90, // HFT maker floor matches
		MtmTV:            0.0010,
		RiskRatio:        5.0,
		TotalVolume:      decimal.RequireFromString("500000000"),
		NetPnl:           decimal.RequireFromString("500000"), // smart rule matches
		TotalFees:        decimal.Zero,
	}

	first := c.Classify(conflicted)
	if first != types.TagLiquidator {
		t.Fatalf("Classify() = %q, want %q from rule order", first, types.TagLiquidator)
	}

	for i := 0; i < 10; i++ {
		if got := c.Classify(conflicted); got != first {
			t.Fatalf("Classify() non-deterministic: got %q after %q", got, first)
		}
	}
}

func TestClassify_CustomThresholds(t *testing.T) {
	strict := New(Thresholds{
		LiquidatorFillPct: 0.50,
		HFTMakerPct:       0.99,
		HFTMaxAbsMtmTV:    0.0001,
		SmartMinNetPnl:    1_000_000,
		SmartMinMtmTV:     0.01,
		SmartMinRiskRatio: 3.0,
	})

	p := &types.TraderProfile{
		TotalFills:       100,
		LiquidationFills: 25,
		TotalVolume:      decimal.RequireFromString("1000"),
		NetPnl:           decimal.Zero,
		TotalFees:        decimal.Zero,
	}

	// 25% liquidation share passes the default 20% floor but not 50%
	if got := strict.Classify(p); got != types.TagRetail {
		t.Errorf("Classify() = %q, want RETAIL under strict thresholds", got)
	}
}
