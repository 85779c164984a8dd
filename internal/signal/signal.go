package signal

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
	"go.uber.org/zap"
)

// Aggregator folds the opening fills of smart-money accounts into
// per-(instrument, time bucket) positioning signals. It is a pure
// downstream fold: no state machine, just a membership filter and sums.
type Aggregator struct {
	bucket time.Duration
	logger *zap.Logger
}

// New creates a signal aggregator with the given bucket width.
func New(bucket time.Duration, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		bucket: bucket,
		logger: logger,
	}
}

type signalKey struct {
	instrument string
	bucket     time.Time
}

// Aggregate folds fills from accounts in the smart set into asset signals.
// Only opening fills contribute volume; closes are position unwinds, not
// directional expression. Output is sorted by (instrument, bucket).
func (a *Aggregator) Aggregate(smart map[string]struct{}, fills []*types.Fill) []*types.AssetSignal {
	signals := make(map[signalKey]*types.AssetSignal)
	accounts := make(map[signalKey]map[string]struct{})

	for _, fill := range fills {
		if _, ok := smart[fill.AccountID]; !ok {
			continue
		}
		if !fill.Direction.IsOpen() {
			continue
		}

		key := signalKey{
			instrument: fill.Instrument,
			bucket:     fill.Timestamp.UTC().Truncate(a.bucket),
		}

		s, ok := signals[key]
		if !ok {
			s = &types.AssetSignal{
				Instrument:  key.instrument,
				BucketStart: key.bucket,
				LongVolume:  decimal.Zero,
				ShortVolume: decimal.Zero,
			}
			signals[key] = s
			accounts[key] = make(map[string]struct{})
		}

		accounts[key][fill.AccountID] = struct{}{}

		if fill.Direction == types.DirOpenLong {
			s.LongVolume = s.LongVolume.Add(fill.Notional())
		} else {
			s.ShortVolume = s.ShortVolume.Add(fill.Notional())
		}
	}

	out := make([]*types.AssetSignal, 0, len(signals))
	for key, s := range signals {
		s.AccountCount = len(accounts[key])
		s.NetBias = netBias(s.LongVolume, s.ShortVolume)
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Instrument != out[j].Instrument {
			return out[i].Instrument < out[j].Instrument
		}
		return out[i].BucketStart.Before(out[j].BucketStart)
	})

	SignalsComputedTotal.Add(float64(len(out)))

	return out
}

// netBias is (long - short) / (long + short), 0 when both sides are 0.
func netBias(long, short decimal.Decimal) float64 {
	total := long.Add(short)
	if total.IsZero() {
		return 0
	}
	return long.Sub(short).Div(total).InexactFloat64()
}
