package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyBucket is the per-(account, day) aggregate of fills and closed
// trades. Buckets are always written wholesale by the daily aggregator;
// they are never incremented in place.
type DailyBucket struct {
	AccountID string
	Day       time.Time // UTC midnight

	FillCount   int
	Volume      decimal.Decimal // sum of price * size
	RealizedPnl decimal.Decimal
	Fees        decimal.Decimal

	MakerFills int
	TakerFills int

	WinningTrades int
	LosingTrades  int

	LiquidationFills int
	Instruments      int // distinct instruments traded that day

	OpenLongFills  int
	OpenShortFills int
}

// Empty reports whether the bucket holds no activity.
func (b *DailyBucket) Empty() bool {
	return b.FillCount == 0 && b.WinningTrades == 0 && b.LosingTrades == 0
}
