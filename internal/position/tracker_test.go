package position

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
	"go.uber.org/zap"
)

var baseTime = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type fillSpec struct {
	side  types.Side
	price string
	size  string
	dir   types.Direction
	atSec int
	seq   int64
	pnl   string // source-reported closedPnl, "" for none
}

func makeFill(spec fillSpec) *types.Fill {
	fill := &types.Fill{
		AccountID:  "0xabc",
		Instrument: "BTC",
		Price:      decimal.RequireFromString(spec.price),
		Size:       decimal.RequireFromString(spec.size),
		Side:       spec.side,
		Direction:  spec.dir,
		Timestamp:  baseTime.Add(time.Duration(spec.atSec) * time.Second),
		SequenceID: spec.seq,
	}
	if spec.pnl != "" {
		fill.RealizedPnl = decimal.RequireFromString(spec.pnl)
		fill.HasRealizedPnl = true
	}
	return fill
}

func applyAll(t *testing.T, tracker *Tracker, specs []fillSpec) []*types.ClosedTrade {
	t.Helper()

	var trades []*types.ClosedTrade
	for _, spec := range specs {
		trade, err := tracker.Apply(makeFill(spec))
		if err != nil {
			t.Fatalf("Apply(%+v) error = %v", spec, err)
		}
		if trade != nil {
			trades = append(trades, trade)
		}
	}
	return trades
}

func TestApply_OpenAndExtend(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	tracker := NewTracker(logger)

	trades := applyAll(t, tracker, []fillSpec{
		{side: types.SideBuy, price: "100", size: "1", dir: types.DirOpenLong, atSec: 0, seq: 1},
		{side: types.SideBuy, price: "200", size: "1", dir: types.DirOpenLong, atSec: 1, seq: 2},
	})

	if len(trades) != 0 {
		t.Fatalf("expected no trades from opening fills, got %d", len(trades))
	}

	st, ok := tracker.Position(types.FillKey{AccountID: "0xabc", Instrument: "BTC"})
	if !ok {
		t.Fatal("expected open position")
	}
	if st.NetSize.String() != "2" {
		t.Errorf("NetSize = %s, want 2", st.NetSize)
	}
	// (100*1 + 200*1) / 2
	if st.AvgEntryPrice.String() != "150" {
		t.Errorf("AvgEntryPrice = %s, want 150", st.AvgEntryPrice)
	}
	if !st.EntryTime.Equal(baseTime) {
		t.Errorf("EntryTime = %v, want first fill time", st.EntryTime)
	}
}

func TestApply_PartialClose(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	tracker := NewTracker(logger)

	trades := applyAll(t, tracker, []fillSpec{
		{side: types.SideBuy, price: "100", size: "2", dir: types.DirOpenLong, atSec: 0, seq: 1},
		{side: types.SideSell, price: "110", size: "1", dir: types.DirCloseLong, atSec: 10, seq: 2},
	})

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}

	trade := trades[0]
	if trade.ClosedSize.String() != "1" {
		t.Errorf("ClosedSize = %s, want 1", trade.ClosedSize)
	}
	// (110 - 100) * 1
	if trade.RealizedPnl.String() != "10" {
		t.Errorf("RealizedPnl = %s, want 10", trade.RealizedPnl)
	}
	if !trade.WasLong {
		t.Error("WasLong = false")
	}
	if trade.HoldingDuration() != 10*time.Second {
		t.Errorf("HoldingDuration = %v, want 10s", trade.HoldingDuration())
	}

	// Remaining half keeps the original entry price
	st, ok := tracker.Position(types.FillKey{AccountID: "0xabc", Instrument: "BTC"})
	if !ok {
		t.Fatal("expected position to remain open")
	}
	if st.NetSize.String() != "1" {
		t.Errorf("NetSize = %s, want 1", st.NetSize)
	}
	if st.AvgEntryPrice.String() != "100" {
		t.Errorf("AvgEntryPrice = %s, want 100 after partial close", st.AvgEntryPrice)
	}
}

func TestApply_FullClose(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	tracker := NewTracker(logger)

	trades := applyAll(t, tracker, []fillSpec{
		{side: types.SideSell, price: "100", size: "3", dir: types.DirOpenShort, atSec: 0, seq: 1},
		{side: types.SideBuy, price: "90", size: "3", dir: types.DirCloseShort, atSec: 5, seq: 2},
	})

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}

	trade := trades[0]
	// Short from 100 covered at 90: (90 - 100) * 3 negated = 30
	if trade.RealizedPnl.String() != "30" {
		t.Errorf("RealizedPnl = %s, want 30", trade.RealizedPnl)
	}
	if trade.WasLong {
		t.Error("WasLong = true for a short")
	}

	_, ok := tracker.Position(types.FillKey{AccountID: "0xabc", Instrument: "BTC"})
	if ok {
		t.Error("expected flat position after full close")
	}
}

func TestApply_Flip(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	tracker := NewTracker(logger)

	key := types.FillKey{AccountID: "0xabc", Instrument: "BTC"}

	trades := applyAll(t, tracker, []fillSpec{
		{side: types.SideBuy, price: "100", size: "1", dir: types.DirOpenLong, atSec: 0, seq: 1},
		// Sell 3: closes the 1 long, opens a 2 short
		{side: types.SideSell, price: "120", size: "3", atSec: 10, seq: 2},
	})

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade from the flip, got %d", len(trades))
	}
	if trades[0].ClosedSize.String() != "1" {
		t.Errorf("ClosedSize = %s, want the full prior long of 1", trades[0].ClosedSize)
	}
	if trades[0].RealizedPnl.String() != "20" {
		t.Errorf("RealizedPnl = %s, want 20", trades[0].RealizedPnl)
	}

	st, ok := tracker.Position(key)
	if !ok {
		t.Fatal("expected fresh short after flip")
	}
	if st.NetSize.String() != "-2" {
		t.Errorf("NetSize = %s, want -2", st.NetSize)
	}
	if st.AvgEntryPrice.String() != "120" {
		t.Errorf("AvgEntryPrice = %s, want flip fill price 120", st.AvgEntryPrice)
	}
	if !st.EntryTime.Equal(baseTime.Add(10 * time.Second)) {
		t.Errorf("EntryTime = %v, want flip fill time", st.EntryTime)
	}
}

func TestApply_SourcePnlWins(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	tracker := NewTracker(logger)

	trades := applyAll(t, tracker, []fillSpec{
		{side: types.SideBuy, price: "100", size: "1", dir: types.DirOpenLong, atSec: 0, seq: 1},
		// Source reports 7.5 even though arithmetic says 10
		{side: types.SideSell, price: "110", size: "1", dir: types.DirCloseLong, atSec: 1, seq: 2, pnl: "7.5"},
	})

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].RealizedPnl.String() != "7.5" {
		t.Errorf("RealizedPnl = %s, want source-reported 7.5", trades[0].RealizedPnl)
	}
}

func TestApply_OutOfOrder(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	tracker := NewTracker(logger)

	_, err := tracker.Apply(makeFill(fillSpec{side: types.SideBuy, price: "100", size: "1", dir: types.DirOpenLong, atSec: 10, seq: 5}))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	tests := []struct {
		name string
		spec fillSpec
	}{
		{
			name: "earlier-timestamp",
			spec: fillSpec{side: types.SideBuy, price: "100", size: "1", atSec: 5, seq: 9},
		},
		{
			name: "same-timestamp-lower-sequence",
			spec: fillSpec{side: types.SideBuy, price: "100", size: "1", atSec: 10, seq: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tracker.Apply(makeFill(tt.spec))

			var ooo *OutOfOrderError
			if !errors.As(err, &ooo) {
				t.Fatalf("Apply() error = %v, want OutOfOrderError", err)
			}
		})
	}

	// Equal (timestamp, sequence) replays are accepted, not errors
	_, err = tracker.Apply(makeFill(fillSpec{side: types.SideBuy, price: "100", size: "1", dir: types.DirOpenLong, atSec: 10, seq: 5}))
	if err != nil {
		t.Errorf("Apply() same-position fill error = %v, want nil", err)
	}
}

func TestApply_InferredDirection(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	tests := []struct {
		name  string
		specs []fillSpec
		want  types.Direction
	}{
		{
			name: "buy-flat-opens-long",
			specs: []fillSpec{
				{side: types.SideBuy, price: "100", size: "1", atSec: 0, seq: 1},
			},
			want: types.DirOpenLong,
		},
		{
			name: "sell-flat-opens-short",
			specs: []fillSpec{
				{side: types.SideSell, price: "100", size: "1", atSec: 0, seq: 1},
			},
			want: types.DirOpenShort,
		},
		{
			name: "sell-against-long-closes-long",
			specs: []fillSpec{
				{side: types.SideBuy, price: "100", size: "2", dir: types.DirOpenLong, atSec: 0, seq: 1},
				{side: types.SideSell, price: "110", size: "1", atSec: 1, seq: 2},
			},
			want: types.DirCloseLong,
		},
		{
			name: "buy-against-short-closes-short",
			specs: []fillSpec{
				{side: types.SideSell, price: "100", size: "2", dir: types.DirOpenShort, atSec: 0, seq: 1},
				{side: types.SideBuy, price: "90", size: "1", atSec: 1, seq: 2},
			},
			want: types.DirCloseShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker(logger)

			var last *types.Fill
			for _, spec := range tt.specs {
				last = makeFill(spec)
				if last.Direction == types.DirUnknown {
					last.DirectionInferred = true
				}
				_, err := tracker.Apply(last)
				if err != nil {
					t.Fatalf("Apply() error = %v", err)
				}
			}

			if last.Direction != tt.want {
				t.Errorf("inferred direction = %q, want %q", last.Direction, tt.want)
			}
		})
	}
}

func TestApply_InconsistentTag(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	tracker := NewTracker(logger)

	trades := applyAll(t, tracker, []fillSpec{
		{side: types.SideBuy, price: "100", size: "2", dir: types.DirOpenLong, atSec: 0, seq: 1},
		// Arithmetic says close, source says open: computed transition wins
		{side: types.SideSell, price: "110", size: "1", dir: types.DirOpenShort, atSec: 1, seq: 2},
	})

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if !trades[0].InconsistentTag {
		t.Error("InconsistentTag = false, want flagged disagreement")
	}
}

// A flip fill legitimately carries the source pnl of the leg it closes;
// only a pure opening fill with a closedPnl is a tag mismatch.
func TestApply_FlipWithSourcePnlNotFlagged(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	tracker := NewTracker(logger)

	before := testutil.ToFloat64(InconsistentTagsTotal)

	trades := applyAll(t, tracker, []fillSpec{
		{side: types.SideBuy, price: "100", size: "1", dir: types.DirOpenLong, atSec: 0, seq: 1},
		// Closes the 1 long, opens a 2 short, source pnl on the closed leg
		{side: types.SideSell, price: "120", size: "3", dir: types.DirCloseLong, atSec: 1, seq: 2, pnl: "20"},
	})

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade from the flip, got %d", len(trades))
	}
	if trades[0].RealizedPnl.String() != "20" {
		t.Errorf("RealizedPnl = %s, want source-reported 20", trades[0].RealizedPnl)
	}
	if trades[0].InconsistentTag {
		t.Error("InconsistentTag = true for a flip carrying source pnl")
	}
	if got := testutil.ToFloat64(InconsistentTagsTotal) - before; got != 0 {
		t.Errorf("inconsistent tag counter moved by %v on a flip", got)
	}

	st, ok := tracker.Position(types.FillKey{AccountID: "0xabc", Instrument: "BTC"})
	if !ok || st.NetSize.String() != "-2" {
		t.Errorf("expected fresh -2 short after flip, got %+v", st)
	}
}

func TestApply_SourcePnlOnOpeningFillFlagged(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	tracker := NewTracker(logger)

	before := testutil.ToFloat64(InconsistentTagsTotal)

	trades := applyAll(t, tracker, []fillSpec{
		{side: types.SideBuy, price: "100", size: "1", dir: types.DirOpenLong, atSec: 0, seq: 1, pnl: "5"},
	})

	if len(trades) != 0 {
		t.Fatalf("expected no trades from an opening fill, got %d", len(trades))
	}
	if got := testutil.ToFloat64(InconsistentTagsTotal) - before; got != 1 {
		t.Errorf("inconsistent tag counter moved by %v, want 1", got)
	}
}

func TestResetKey(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	tracker := NewTracker(logger)

	key := types.FillKey{AccountID: "0xabc", Instrument: "BTC"}

	_, err := tracker.Apply(makeFill(fillSpec{side: types.SideBuy, price: "100", size: "1", dir: types.DirOpenLong, atSec: 10, seq: 5}))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	tracker.ResetKey(key)

	if _, ok := tracker.Position(key); ok {
		t.Error("expected no position after reset")
	}

	// The ordering watermark is gone too: an earlier fill starts from flat
	trade, err := tracker.Apply(makeFill(fillSpec{side: types.SideSell, price: "90", size: "1", dir: types.DirOpenShort, atSec: 5, seq: 1}))
	if err != nil {
		t.Fatalf("Apply() after reset error = %v", err)
	}
	if trade != nil {
		t.Errorf("expected no trade from flat, got %+v", trade)
	}

	st, ok := tracker.Position(key)
	if !ok || st.NetSize.String() != "-1" {
		t.Errorf("expected fresh -1 short after reset, got %+v", st)
	}
}

func TestApply_LiquidationFlag(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	tracker := NewTracker(logger)

	_, err := tracker.Apply(makeFill(fillSpec{side: types.SideBuy, price: "100", size: "1", dir: types.DirOpenLong, atSec: 0, seq: 1}))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	closing := makeFill(fillSpec{side: types.SideSell, price: "80", size: "1", dir: types.DirCloseLong, atSec: 1, seq: 2})
	closing.IsLiquidation = true

	trade, err := tracker.Apply(closing)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if trade == nil || !trade.Liquidated {
		t.Error("expected liquidated trade")
	}
}
