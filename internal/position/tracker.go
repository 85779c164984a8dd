package position

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
	"go.uber.org/zap"
)

// State is the mutable position state for one (account, instrument) key.
// It is owned exclusively by the tracker that created it.
type State struct {
	NetSize       decimal.Decimal // signed; positive = long
	AvgEntryPrice decimal.Decimal // defined iff NetSize != 0
	CostBasis     decimal.Decimal // NetSize * AvgEntryPrice, recomputed on every update
	EntryTime     time.Time       // when NetSize last crossed zero

	lastTimestamp time.Time
	lastSequence  int64
	seen          bool
}

// OutOfOrderError reports a fill whose (timestamp, sequence) orders before
// the last fill processed for its key. The caller must invalidate and
// recompute the affected window; the tracker never silently drops.
type OutOfOrderError struct {
	Key       types.FillKey
	Timestamp time.Time
	LastSeen  time.Time
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("out-of-order fill for %s/%s: %s before last-seen %s",
		e.Key.AccountID, e.Key.Instrument,
		e.Timestamp.Format(time.RFC3339Nano), e.LastSeen.Format(time.RFC3339Nano))
}

// Tracker reconstructs round-trip trades from a per-key ordered fill
// stream. One tracker serves one shard; keys never cross shards, so no
// locking is needed here.
type Tracker struct {
	positions map[types.FillKey]*State
	logger    *zap.Logger
}

// NewTracker creates an empty tracker.
func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{
		positions: make(map[types.FillKey]*State),
		logger:    logger,
	}
}

// Apply advances the state machine with one fill. It returns a ClosedTrade
// when the fill reduces or flips an open position, nil otherwise.
//
// The transition is decided by position arithmetic alone. When the
// source-reported direction or closedPnl disagrees with the computed
// transition, the computed transition wins and the discrepancy is flagged.
func (t *Tracker) Apply(fill *types.Fill) (*types.ClosedTrade, error) {
	key := fill.Key()

	st, ok := t.positions[key]
	if !ok {
		st = &State{}
		t.positions[key] = st
	}

	if st.seen {
		if fill.Timestamp.Before(st.lastTimestamp) ||
			(fill.Timestamp.Equal(st.lastTimestamp) && fill.SequenceID < st.lastSequence) {
			OutOfOrderFillsTotal.Inc()
			return nil, &OutOfOrderError{Key: key, Timestamp: fill.Timestamp, LastSeen: st.lastTimestamp}
		}
	}
	st.seen = true
	st.lastTimestamp = fill.Timestamp
	st.lastSequence = fill.SequenceID
	FillsProcessedTotal.Inc()

	if fill.Direction == types.DirUnknown && fill.DirectionInferred {
		// The normalizer deferred inference to here, where the position
		// sign is exact.
		fill.Direction = inferDirection(fill.Side, st.NetSize.Sign())
	}

	delta := fill.SignedDelta()

	// Same-sign (or flat) fill opens or extends the position.
	if st.NetSize.IsZero() || st.NetSize.Sign() == delta.Sign() {
		if fill.HasRealizedPnl && !fill.RealizedPnl.IsZero() {
			// Source tagged a realized PnL on what the arithmetic says is a
			// pure opening fill. The computed transition wins; record for
			// audit. Flip remainders re-enter open() below with the PnL
			// already consumed by the close, so only this branch flags.
			InconsistentTagsTotal.Inc()
			t.logger.Warn("closed-pnl-on-opening-fill",
				zap.String("account", key.AccountID),
				zap.String("instrument", key.Instrument),
				zap.String("closed-pnl", fill.RealizedPnl.String()),
				zap.Time("timestamp", fill.Timestamp))
		}
		t.open(key, st, fill, delta)
		return nil, nil
	}

	closeSize := decimal.Min(delta.Abs(), st.NetSize.Abs())
	trade := t.close(key, st, fill, closeSize)

	remainder := delta.Abs().Sub(st.NetSize.Abs())
	if remainder.IsPositive() {
		// Flip: the prior position fully closed above; the remainder opens
		// fresh in the new direction.
		PositionFlipsTotal.Inc()
		OpenPositions.Dec()
		signed := remainder
		if delta.IsNegative() {
			signed = remainder.Neg()
		}
		st.NetSize = decimal.Zero
		st.CostBasis = decimal.Zero
		st.AvgEntryPrice = decimal.Zero
		t.open(key, st, fill, signed)
	} else {
		st.NetSize = st.NetSize.Add(delta)
		if st.NetSize.IsZero() {
			st.AvgEntryPrice = decimal.Zero
			st.CostBasis = decimal.Zero
			st.EntryTime = time.Time{}
			OpenPositions.Dec()
		} else {
			// Partial close: entry price unchanged, only magnitude shrinks.
			st.CostBasis = st.NetSize.Mul(st.AvgEntryPrice)
		}
	}

	return trade, nil
}

func (t *Tracker) open(key types.FillKey, st *State, fill *types.Fill, delta decimal.Decimal) {
	if st.NetSize.IsZero() {
		st.EntryTime = fill.Timestamp
		OpenPositions.Inc()
	}

	st.CostBasis = st.CostBasis.Add(fill.Price.Mul(delta))
	st.NetSize = st.NetSize.Add(delta)
	st.AvgEntryPrice = st.CostBasis.Div(st.NetSize)
}

func (t *Tracker) close(key types.FillKey, st *State, fill *types.Fill, closeSize decimal.Decimal) *types.ClosedTrade {
	wasLong := st.NetSize.IsPositive()

	pnl := fill.RealizedPnl
	if !fill.HasRealizedPnl {
		// No source-reported PnL; fall back to cost-basis arithmetic.
		pnl = fill.Price.Sub(st.AvgEntryPrice).Mul(closeSize)
		if !wasLong {
			pnl = pnl.Neg()
		}
	}

	inconsistent := fill.Direction.IsOpen() && !fill.DirectionInferred
	if inconsistent {
		InconsistentTagsTotal.Inc()
		t.logger.Warn("open-direction-on-closing-fill",
			zap.String("account", key.AccountID),
			zap.String("instrument", key.Instrument),
			zap.String("dir", string(fill.Direction)),
			zap.Time("timestamp", fill.Timestamp))
	}

	TradesEmittedTotal.Inc()

	return &types.ClosedTrade{
		ID:              uuid.NewString(),
		AccountID:       key.AccountID,
		Instrument:      key.Instrument,
		OpenedAt:        st.EntryTime,
		ClosedAt:        fill.Timestamp,
		ClosedSize:      closeSize,
		RealizedPnl:     pnl,
		WasLong:         wasLong,
		Liquidated:      fill.IsLiquidation,
		InconsistentTag: inconsistent,
	}
}

// inferDirection derives a direction from the fill side and the key's
// current position sign. Flat positions always open.
func inferDirection(side types.Side, sign int) types.Direction {
	if side == types.SideBuy {
		if sign < 0 {
			return types.DirCloseShort
		}
		return types.DirOpenLong
	}
	if sign > 0 {
		return types.DirCloseLong
	}
	return types.DirOpenShort
}

// ResetKey drops all state for a key ahead of a from-scratch replay. The
// next fill for the key starts from flat with no ordering watermark.
func (t *Tracker) ResetKey(key types.FillKey) {
	st, ok := t.positions[key]
	if !ok {
		return
	}
	if !st.NetSize.IsZero() {
		OpenPositions.Dec()
	}
	delete(t.positions, key)
}

// Position returns a copy of the current state for a key, and whether the
// key has an open position.
func (t *Tracker) Position(key types.FillKey) (State, bool) {
	st, ok := t.positions[key]
	if !ok || st.NetSize.IsZero() {
		return State{}, false
	}
	return *st, true
}

// PositionSign returns -1, 0 or +1 for the key's current net exposure.
func (t *Tracker) PositionSign(key types.FillKey) int {
	st, ok := t.positions[key]
	if !ok {
		return 0
	}
	return st.NetSize.Sign()
}

// Keys returns the number of keys the tracker has seen.
func (t *Tracker) Keys() int {
	return len(t.positions)
}
