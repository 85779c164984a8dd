package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
	"go.uber.org/zap"
)

var day0 = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func aggFill(coin string, notionalPrice, size string, at time.Time, role types.LiquidityRole, dir types.Direction) *types.Fill {
	return &types.Fill{
		AccountID:  "0xabc",
		Instrument: coin,
		Price:      decimal.RequireFromString(notionalPrice),
		Size:       decimal.RequireFromString(size),
		Side:       types.SideBuy,
		Direction:  dir,
		Timestamp:  at,
		Fee:        decimal.RequireFromString("1"),
		Role:       role,
	}
}

func aggTrade(pnl string, closedAt time.Time) *types.ClosedTrade {
	return &types.ClosedTrade{
		AccountID:   "0xabc",
		Instrument:  "BTC",
		ClosedAt:    closedAt,
		ClosedSize:  decimal.RequireFromString("1"),
		RealizedPnl: decimal.RequireFromString(pnl),
	}
}

func TestComputeWindow(t *testing.T) {
	w := NewWindow(day0, day0.Add(48*time.Hour))

	fills := []*types.Fill{
		aggFill("BTC", "100", "2", day0.Add(1*time.Hour), types.RoleMaker, types.DirOpenLong),
		aggFill("ETH", "10", "1", day0.Add(2*time.Hour), types.RoleTaker, types.DirOpenShort),
		// Day 3 of the window; day 2 stays empty
		aggFill("BTC", "100", "1", day0.Add(50*time.Hour), types.RoleMaker, types.DirCloseLong),
	}
	trades := []*types.ClosedTrade{
		aggTrade("50", day0.Add(3*time.Hour)),
		aggTrade("-20", day0.Add(4*time.Hour)),
		aggTrade("0", day0.Add(5*time.Hour)), // zero pnl is neither win nor loss
	}

	buckets := ComputeWindow("0xabc", w, fills, trades)

	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets (empty day omitted), got %d", len(buckets))
	}

	b := buckets[0]
	if !b.Day.Equal(day0) {
		t.Errorf("Day = %v, want %v", b.Day, day0)
	}
	if b.FillCount != 2 {
		t.Errorf("FillCount = %d, want 2", b.FillCount)
	}
	// 100*2 + 10*1
	if b.Volume.String() != "210" {
		t.Errorf("Volume = %s, want 210", b.Volume)
	}
	if b.Fees.String() != "2" {
		t.Errorf("Fees = %s, want 2", b.Fees)
	}
	if b.RealizedPnl.String() != "30" {
		t.Errorf("RealizedPnl = %s, want 30", b.RealizedPnl)
	}
	if b.MakerFills != 1 || b.TakerFills != 1 {
		t.Errorf("maker/taker = %d/%d, want 1/1", b.MakerFills, b.TakerFills)
	}
	if b.WinningTrades != 1 || b.LosingTrades != 1 {
		t.Errorf("win/loss = %d/%d, want 1/1", b.WinningTrades, b.LosingTrades)
	}
	if b.Instruments != 2 {
		t.Errorf("Instruments = %d, want 2", b.Instruments)
	}
	if b.OpenLongFills != 1 || b.OpenShortFills != 1 {
		t.Errorf("open long/short = %d/%d, want 1/1", b.OpenLongFills, b.OpenShortFills)
	}

	if !buckets[1].Day.Equal(day0.Add(48 * time.Hour)) {
		t.Errorf("second bucket day = %v", buckets[1].Day)
	}
}

func TestComputeWindow_OrderIndependent(t *testing.T) {
	w := WindowForDay(day0)

	fills := []*types.Fill{
		aggFill("BTC", "100", "1", day0.Add(1*time.Hour), types.RoleMaker, types.DirOpenLong),
		aggFill("BTC", "110", "1", day0.Add(2*time.Hour), types.RoleTaker, types.DirCloseLong),
		aggFill("ETH", "10", "3", day0.Add(3*time.Hour), types.RoleMaker, types.DirOpenShort),
	}
	trades := []*types.ClosedTrade{
		aggTrade("10", day0.Add(2*time.Hour)),
	}

	forward := ComputeWindow("0xabc", w, fills, trades)

	reversed := []*types.Fill{fills[2], fills[0], fills[1]}
	backward := ComputeWindow("0xabc", w, reversed, trades)

	if len(forward) != 1 || len(backward) != 1 {
		t.Fatalf("bucket counts = %d/%d, want 1/1", len(forward), len(backward))
	}

	f, b := forward[0], backward[0]
	if !f.Volume.Equal(b.Volume) || f.FillCount != b.FillCount ||
		!f.RealizedPnl.Equal(b.RealizedPnl) || f.Instruments != b.Instruments {
		t.Errorf("bucket differs by input order:\n%+v\n%+v", f, b)
	}
}

func TestComputeWindow_FiltersAccountAndWindow(t *testing.T) {
	w := WindowForDay(day0)

	other := aggFill("BTC", "100", "1", day0.Add(time.Hour), types.RoleMaker, types.DirOpenLong)
	other.AccountID = "0xother"

	fills := []*types.Fill{
		other,
		aggFill("BTC", "100", "1", day0.Add(26*time.Hour), types.RoleMaker, types.DirOpenLong), // next day
	}

	buckets := ComputeWindow("0xabc", w, fills, nil)
	if len(buckets) != 0 {
		t.Errorf("expected no buckets, got %d", len(buckets))
	}
}

// replaceCall records one ReplaceDailyBuckets invocation.
type replaceCall struct {
	accountID  string
	start, end time.Time
	buckets    []*types.DailyBucket
}

type storeSpy struct {
	calls []replaceCall
}

func (s *storeSpy) ReplaceDailyBuckets(_ context.Context, accountID string, start, end time.Time, buckets []*types.DailyBucket) error {
	s.calls = append(s.calls, replaceCall{accountID: accountID, start: start, end: end, buckets: buckets})
	return nil
}

func TestRecomputeWindow_ReplacesWholesale(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	spy := &storeSpy{}
	agg := New(spy, logger)

	w := WindowForDay(day0)
	fills := []*types.Fill{
		aggFill("BTC", "100", "1", day0.Add(time.Hour), types.RoleMaker, types.DirOpenLong),
	}

	_, err := agg.RecomputeWindow(context.Background(), "0xabc", w, fills, nil)
	if err != nil {
		t.Fatalf("RecomputeWindow() error = %v", err)
	}

	// Re-running the same window with no activity must still write, so
	// stale rows get deleted by the replace contract.
	_, err = agg.RecomputeWindow(context.Background(), "0xabc", w, nil, nil)
	if err != nil {
		t.Fatalf("RecomputeWindow() error = %v", err)
	}

	if len(spy.calls) != 2 {
		t.Fatalf("expected 2 store calls, got %d", len(spy.calls))
	}
	if len(spy.calls[0].buckets) != 1 {
		t.Errorf("first call wrote %d buckets, want 1", len(spy.calls[0].buckets))
	}
	if len(spy.calls[1].buckets) != 0 {
		t.Errorf("second call wrote %d buckets, want 0 (delete-only)", len(spy.calls[1].buckets))
	}
	if !spy.calls[0].start.Equal(day0) || !spy.calls[0].end.Equal(day0) {
		t.Errorf("window bounds = [%v, %v]", spy.calls[0].start, spy.calls[0].end)
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name     string
		a, b     time.Time
		wantDays int
	}{
		{
			name:     "single-day",
			a:        day0.Add(3 * time.Hour),
			b:        day0.Add(20 * time.Hour),
			wantDays: 1,
		},
		{
			name:     "reordered-bounds",
			a:        day0.Add(72 * time.Hour),
			b:        day0,
			wantDays: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWindow(tt.a, tt.b)
			if got := w.Days(); got != tt.wantDays {
				t.Errorf("Days() = %d, want %d", got, tt.wantDays)
			}
			if !w.Contains(w.Start) || !w.Contains(w.End.Add(23*time.Hour)) {
				t.Error("window must contain its own bounds inclusively")
			}
			if w.Contains(w.Start.Add(-time.Second)) {
				t.Error("window must not contain the prior day")
			}
		})
	}
}
