package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClosedTrade is one completed round trip (or the closed portion of one),
// emitted by the position tracker whenever a fill reduces or flips an open
// position.
type ClosedTrade struct {
	ID         string // audit id, assigned on emission
	AccountID  string
	Instrument string

	OpenedAt time.Time
	ClosedAt time.Time

	ClosedSize  decimal.Decimal // always positive
	RealizedPnl decimal.Decimal

	// WasLong reports the direction of the position that closed.
	WasLong bool

	// Liquidated marks a trade closed by forced liquidation.
	Liquidated bool

	// InconsistentTag marks a trade whose computed transition disagreed
	// with the source-reported direction or closedPnl annotation. The
	// computed values always win; the flag is kept for audit.
	InconsistentTag bool
}

// HoldingDuration returns how long the closed portion was held.
func (t *ClosedTrade) HoldingDuration() time.Duration {
	return t.ClosedAt.Sub(t.OpenedAt)
}

// Winning reports whether the trade realized a positive PnL.
func (t *ClosedTrade) Winning() bool {
	return t.RealizedPnl.IsPositive()
}

// Day returns the UTC day the trade closed on.
func (t *ClosedTrade) Day() time.Time {
	return t.ClosedAt.UTC().Truncate(24 * time.Hour)
}
