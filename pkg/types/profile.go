package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Classification is one archetype tag assigned by the classifier.
type Classification string

const (
	TagLiquidator       Classification = "LIQUIDATOR"
	TagHFT              Classification = "HFT"
	TagSmartDirectional Classification = "SMART_DIRECTIONAL"
	TagRetail           Classification = "RETAIL"
)

// TraderProfile is the lifetime rollup of one account's daily buckets plus
// derived ratios and the archetype classification. Profiles are recomputed
// wholesale from buckets, never patched incrementally.
type TraderProfile struct {
	AccountID string

	FirstDay time.Time
	LastDay  time.Time

	TotalFills  int
	TotalVolume decimal.Decimal
	NetPnl      decimal.Decimal
	TotalFees   decimal.Decimal

	MakerFills int
	TakerFills int

	WinningTrades int
	LosingTrades  int

	LiquidationFills int
	OpenLongFills    int
	OpenShortFills   int

	// TradingDays counts days with at least one fill or closed trade.
	TradingDays int

	// Derived ratios. Ratios are plain floats: they feed threshold
	// comparisons, not further money arithmetic.
	MakerPct  float64
	WinRate   float64
	MtmTV     float64 // realized pnl / volume
	RiskRatio float64 // annualized mean/stddev of daily pnl

	Classification Classification
}
