package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the aggressor side of a fill as reported by the venue.
type Side string

const (
	SideBuy  Side = "B"
	SideSell Side = "A"
)

// Direction is the position transition reported by the venue.
// It may be absent on raw records; the normalizer infers it best-effort.
type Direction string

const (
	DirUnknown    Direction = ""
	DirOpenLong   Direction = "Open Long"
	DirOpenShort  Direction = "Open Short"
	DirCloseLong  Direction = "Close Long"
	DirCloseShort Direction = "Close Short"
)

// IsOpen reports whether the direction opens exposure.
func (d Direction) IsOpen() bool {
	return d == DirOpenLong || d == DirOpenShort
}

// LiquidityRole indicates whether a fill added or removed resting liquidity.
type LiquidityRole string

const (
	RoleMaker LiquidityRole = "maker"
	RoleTaker LiquidityRole = "taker"
)

// LiquidationTag is the structured liquidation annotation on a raw fill.
type LiquidationTag struct {
	LiquidatedUser string `json:"liquidatedUser,omitempty"`
	MarkPx         string `json:"markPx,omitempty"`
	Method         string `json:"method,omitempty"`
}

// RawFill is the wire-format fill record consumed from the ingestion
// collaborator. Field names match the upstream node data exactly.
type RawFill struct {
	Coin          string          `json:"coin"`
	User          string          `json:"user"`
	Px            string          `json:"px"`
	Sz            string          `json:"sz"`
	Side          string          `json:"side"`
	Dir           string          `json:"dir,omitempty"`
	Time          int64           `json:"time"`
	ClosedPnl     *string         `json:"closedPnl,omitempty"`
	Fee           string          `json:"fee,omitempty"`
	Crossed       bool            `json:"crossed"`
	Hash          string          `json:"hash,omitempty"`
	Oid           int64           `json:"oid,omitempty"`
	Tid           int64           `json:"tid,omitempty"`
	StartPosition string          `json:"startPosition,omitempty"`
	FeeToken      string          `json:"feeToken,omitempty"`
	TwapID        *int64          `json:"twapId,omitempty"`
	Builder       string          `json:"builder,omitempty"`
	Cloid         string          `json:"cloid,omitempty"`
	Liquidation   *LiquidationTag `json:"liquidation,omitempty"`
	BlockTime     string          `json:"block_time,omitempty"`
}

// Fill is the canonical, validated fill record. All downstream components
// operate on this closed type only; money fields are fixed-point decimals.
type Fill struct {
	AccountID  string
	Instrument string
	Price      decimal.Decimal
	Size       decimal.Decimal // always positive
	Side       Side
	Direction  Direction
	Timestamp  time.Time

	RealizedPnl    decimal.Decimal
	HasRealizedPnl bool
	Fee            decimal.Decimal
	Role           LiquidityRole

	// SequenceID is the tie-break key for fills sharing a timestamp.
	SequenceID int64

	IsLiquidation bool
	IsTWAP        bool
	Venue         string

	// DirectionInferred marks a direction that is (or is to be) derived
	// from side and position sign rather than reported by the source.
	DirectionInferred bool
}

// Key returns the position-tracking key for this fill.
func (f *Fill) Key() FillKey {
	return FillKey{AccountID: f.AccountID, Instrument: f.Instrument}
}

// SignedDelta returns the signed position delta: +size for buys, -size
// for sells.
func (f *Fill) SignedDelta() decimal.Decimal {
	if f.Side == SideBuy {
		return f.Size
	}
	return f.Size.Neg()
}

// Notional returns price * size.
func (f *Fill) Notional() decimal.Decimal {
	return f.Price.Mul(f.Size)
}

// Day returns the UTC day the fill belongs to.
func (f *Fill) Day() time.Time {
	return f.Timestamp.UTC().Truncate(24 * time.Hour)
}

// FillKey identifies one (account, instrument) position stream.
type FillKey struct {
	AccountID  string
	Instrument string
}

// Before reports whether fill a orders strictly before fill b for the same
// key: ascending timestamp, sequence id as tie-break.
func Before(a, b *Fill) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.SequenceID < b.SequenceID
}
