package profile

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
)

// Build rolls all of one account's daily buckets into a lifetime profile.
// It is a pure function of the buckets: profiles are recomputed wholesale,
// never patched, so bucket idempotence carries through to profiles.
func Build(accountID string, buckets []*types.DailyBucket) *types.TraderProfile {
	p := &types.TraderProfile{
		AccountID:   accountID,
		TotalVolume: decimal.Zero,
		NetPnl:      decimal.Zero,
		TotalFees:   decimal.Zero,
	}

	dailyPnl := make([]float64, 0, len(buckets))

	for _, b := range buckets {
		if b.AccountID != accountID || b.Empty() {
			continue
		}

		if p.FirstDay.IsZero() || b.Day.Before(p.FirstDay) {
			p.FirstDay = b.Day
		}
		if b.Day.After(p.LastDay) {
			p.LastDay = b.Day
		}

		p.TotalFills += b.FillCount
		p.TotalVolume = p.TotalVolume.Add(b.Volume)
		p.NetPnl = p.NetPnl.Add(b.RealizedPnl)
		p.TotalFees = p.TotalFees.Add(b.Fees)
		p.MakerFills += b.MakerFills
		p.TakerFills += b.TakerFills
		p.WinningTrades += b.WinningTrades
		p.LosingTrades += b.LosingTrades
		p.LiquidationFills += b.LiquidationFills
		p.OpenLongFills += b.OpenLongFills
		p.OpenShortFills += b.OpenShortFills
		p.TradingDays++

		dailyPnl = append(dailyPnl, b.RealizedPnl.InexactFloat64())
	}

	if p.TotalFills > 0 {
		p.MakerPct = float64(p.MakerFills) / float64(p.TotalFills)
	}

	closed := p.WinningTrades + p.LosingTrades
	if closed > 0 {
		p.WinRate = float64(p.WinningTrades) / float64(closed)
	}

	if p.TotalVolume.IsPositive() {
		p.MtmTV = p.NetPnl.Div(p.TotalVolume).InexactFloat64()
	}

	p.RiskRatio = RiskRatio(dailyPnl)

	ProfilesBuiltTotal.Inc()
	if !p.LastDay.IsZero() {
		ProfileSpanDays.Observe(p.LastDay.Sub(p.FirstDay).Hours()/24 + 1)
	}

	return p
}

// daysPerYear annualizes the daily PnL ratio.
const daysPerYear = 365

// RiskRatio computes the annualized Sharpe-like ratio of a per-day PnL
// series: mean/stddev * sqrt(365). Degenerate series (fewer than 2 days,
// or flat PnL) return 0 so NaN and Inf never reach the classifier.
func RiskRatio(dailyPnl []float64) float64 {
	if len(dailyPnl) < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range dailyPnl {
		mean += v
	}
	mean /= float64(len(dailyPnl))

	variance := 0.0
	for _, v := range dailyPnl {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(dailyPnl) - 1)

	if variance == 0 {
		return 0
	}

	return mean / math.Sqrt(variance) * math.Sqrt(daysPerYear)
}
