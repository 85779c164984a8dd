package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetSignal is the per-(instrument, time bucket) positioning aggregate of
// accounts classified as smart directional traders.
type AssetSignal struct {
	Instrument  string
	BucketStart time.Time

	LongVolume  decimal.Decimal // notional of opening long fills
	ShortVolume decimal.Decimal // notional of opening short fills

	AccountCount int

	// NetBias is (long - short) / (long + short), 0 when both are 0.
	NetBias float64
}
