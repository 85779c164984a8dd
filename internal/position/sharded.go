package position

import (
	"hash/fnv"
	"sort"
	"sync"

	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
	"go.uber.org/zap"
)

// Sharded fans fills out to per-shard trackers. Keys are pinned to shards
// by hash, so every (account, instrument) stream is processed strictly
// serially while independent keys run in parallel.
type Sharded struct {
	trackers []*Tracker
	logger   *zap.Logger
}

// NewSharded creates a sharded tracker with the given shard count.
func NewSharded(shards int, logger *zap.Logger) *Sharded {
	if shards < 1 {
		shards = 1
	}

	trackers := make([]*Tracker, shards)
	for i := range trackers {
		trackers[i] = NewTracker(logger)
	}

	return &Sharded{
		trackers: trackers,
		logger:   logger,
	}
}

// Result is the outcome of processing one batch of fills.
type Result struct {
	Trades []*types.ClosedTrade

	// OutOfOrder holds fills that ordered before already-processed state
	// for their key. The caller recomputes the windows they fall into.
	OutOfOrder []*types.Fill
}

// Process applies a batch of fills. Fills are partitioned by key hash,
// sorted by (timestamp, sequence) within each shard, and applied in
// parallel across shards. The returned trades are sorted by close time
// for a reproducible audit log.
func (s *Sharded) Process(fills []*types.Fill) *Result {
	buckets := make([][]*types.Fill, len(s.trackers))
	for _, fill := range fills {
		i := s.shardFor(fill.Key())
		buckets[i] = append(buckets[i], fill)
	}

	shardTrades := make([][]*types.ClosedTrade, len(s.trackers))
	shardOOO := make([][]*types.Fill, len(s.trackers))

	var wg sync.WaitGroup
	for i, shard := range buckets {
		if len(shard) == 0 {
			continue
		}

		wg.Add(1)
		go func(i int, shard []*types.Fill) {
			defer wg.Done()

			sort.SliceStable(shard, func(a, b int) bool {
				return types.Before(shard[a], shard[b])
			})

			tracker := s.trackers[i]
			for _, fill := range shard {
				trade, err := tracker.Apply(fill)
				if err != nil {
					shardOOO[i] = append(shardOOO[i], fill)
					continue
				}
				if trade != nil {
					shardTrades[i] = append(shardTrades[i], trade)
				}
			}
		}(i, shard)
	}
	wg.Wait()

	result := &Result{}
	for i := range s.trackers {
		result.Trades = append(result.Trades, shardTrades[i]...)
		result.OutOfOrder = append(result.OutOfOrder, shardOOO[i]...)
	}

	sort.SliceStable(result.Trades, func(a, b int) bool {
		ta, tb := result.Trades[a], result.Trades[b]
		if !ta.ClosedAt.Equal(tb.ClosedAt) {
			return ta.ClosedAt.Before(tb.ClosedAt)
		}
		if ta.AccountID != tb.AccountID {
			return ta.AccountID < tb.AccountID
		}
		return ta.Instrument < tb.Instrument
	})

	if len(result.OutOfOrder) > 0 {
		s.logger.Warn("out-of-order-fills-in-batch",
			zap.Int("count", len(result.OutOfOrder)))
	}

	return result
}

// ResetKey drops all state for a key ahead of a from-scratch replay.
func (s *Sharded) ResetKey(key types.FillKey) {
	s.trackers[s.shardFor(key)].ResetKey(key)
}

// PositionSign returns -1, 0 or +1 for the key's current net exposure.
func (s *Sharded) PositionSign(key types.FillKey) int {
	return s.trackers[s.shardFor(key)].PositionSign(key)
}

// Position returns a copy of the current state for a key.
func (s *Sharded) Position(key types.FillKey) (State, bool) {
	return s.trackers[s.shardFor(key)].Position(key)
}

// Keys returns the total number of keys seen across all shards.
func (s *Sharded) Keys() int {
	total := 0
	for _, tracker := range s.trackers {
		total += tracker.Keys()
	}
	return total
}

func (s *Sharded) shardFor(key types.FillKey) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key.AccountID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key.Instrument))
	return int(h.Sum32() % uint32(len(s.trackers)))
}
