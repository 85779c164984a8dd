package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/trevortrinh/vigil-hypertrace/internal/aggregate"
	"github.com/trevortrinh/vigil-hypertrace/internal/classify"
	"github.com/trevortrinh/vigil-hypertrace/internal/ingest"
	"github.com/trevortrinh/vigil-hypertrace/internal/position"
	"github.com/trevortrinh/vigil-hypertrace/internal/profile"
	"github.com/trevortrinh/vigil-hypertrace/internal/signal"
	"github.com/trevortrinh/vigil-hypertrace/internal/storage"
	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
	"go.uber.org/zap"
)

// Config holds engine configuration.
type Config struct {
	Shards               int
	SignalBucket         time.Duration
	InferDirection       bool
	PassAmbiguousThrough bool
	Thresholds           classify.Thresholds
	Logger               *zap.Logger
}

// Engine runs the full pipeline: normalize, track positions, recompute
// dirty daily windows, rebuild profiles, classify, and aggregate smart
// money signals. It retains the normalized event log per account so any
// window can be recomputed idempotently when late fills arrive.
type Engine struct {
	cfg        Config
	logger     *zap.Logger
	normalizer *ingest.Normalizer
	tracker    *position.Sharded
	daily      *aggregate.Aggregator
	classifier *classify.Classifier
	signals    *signal.Aggregator
	store      storage.Storage

	mu       sync.Mutex
	fills    map[string][]*types.Fill        // per account, the raw-event source of truth
	trades   map[string][]*types.ClosedTrade // per account, regenerated on key replay
	tags     map[string]types.Classification
}

// New creates a pipeline engine writing through the given storage.
func New(cfg Config, store storage.Storage) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: cfg.Logger,
		normalizer: ingest.NewNormalizer(ingest.Config{
			InferDirection:       cfg.InferDirection,
			PassAmbiguousThrough: cfg.PassAmbiguousThrough,
			Logger:               cfg.Logger,
		}),
		tracker:    position.NewSharded(cfg.Shards, cfg.Logger),
		daily:      aggregate.New(store, cfg.Logger),
		classifier: classify.New(cfg.Thresholds),
		signals:    signal.New(cfg.SignalBucket, cfg.Logger),
		store:      store,
		fills:      make(map[string][]*types.Fill),
		trades:     make(map[string][]*types.ClosedTrade),
		tags:       make(map[string]types.Classification),
	}
}

// RunStats summarizes one batch run.
type RunStats struct {
	RunID      string
	FillsIn    int
	Normalized int
	Rejected   int
	Trades     int
	OutOfOrder int
	Replayed   int
	Windows    int
	Accounts   int
	Signals    int
}

// ProcessBatch runs one batch of raw fills through the whole pipeline.
// Per-fill errors are counted and skipped; per-window errors fail only
// that window. The returned error joins window failures, if any.
func (e *Engine) ProcessBatch(ctx context.Context, raws []*types.RawFill) (*RunStats, error) {
	start := time.Now()
	stats := &RunStats{
		RunID:   uuid.NewString(),
		FillsIn: len(raws),
	}

	fills := make([]*types.Fill, 0, len(raws))
	for _, raw := range raws {
		fill, err := e.normalizer.Normalize(raw)
		if err != nil {
			stats.Rejected++
			continue
		}
		fills = append(fills, fill)
	}
	stats.Normalized = len(fills)

	result := e.tracker.Process(fills)
	stats.Trades = len(result.Trades)
	stats.OutOfOrder = len(result.OutOfOrder)

	e.mu.Lock()
	dirty := make(map[string]map[time.Time]struct{})
	markDirty := func(accountID string, t time.Time) {
		days, ok := dirty[accountID]
		if !ok {
			days = make(map[time.Time]struct{})
			dirty[accountID] = days
		}
		days[aggregate.DayOf(t)] = struct{}{}
	}

	late := make(map[*types.Fill]struct{}, len(result.OutOfOrder))
	for _, fill := range result.OutOfOrder {
		late[fill] = struct{}{}
	}

	for _, fill := range fills {
		if _, ok := late[fill]; !ok {
			e.fills[fill.AccountID] = append(e.fills[fill.AccountID], fill)
			markDirty(fill.AccountID, fill.Timestamp)
		}
	}
	for _, trade := range result.Trades {
		e.trades[trade.AccountID] = append(e.trades[trade.AccountID], trade)
		markDirty(trade.AccountID, trade.ClosedAt)
	}

	// Late fills invalidate their key's whole derived history: the key is
	// replayed from the full event log and every touched day recomputed.
	// All late fills land in the log before any key replays, so one replay
	// per key sees every late fill for it.
	lateKeys := make(map[types.FillKey]struct{})
	for _, fill := range result.OutOfOrder {
		e.fills[fill.AccountID] = append(e.fills[fill.AccountID], fill)
		lateKeys[fill.Key()] = struct{}{}
	}

	replayed := make(map[types.FillKey][]*types.ClosedTrade, len(lateKeys))
	for key := range lateKeys {
		replayed[key] = e.replayKeyLocked(key, markDirty)
	}
	stats.Replayed = len(replayed)

	newTrades := result.Trades
	e.mu.Unlock()

	if len(newTrades) > 0 {
		err := e.store.InsertClosedTrades(ctx, newTrades)
		if err != nil {
			e.logger.Error("closed-trade-audit-insert-failed", zap.Error(err))
		}
	}

	// Replayed keys regenerated their trades; the stored audit log must
	// follow, or it stops summing to the recomputed buckets.
	for key, keyTrades := range replayed {
		err := e.store.ReplaceClosedTrades(ctx, key.AccountID, key.Instrument, keyTrades)
		if err != nil {
			e.logger.Error("closed-trade-audit-replace-failed",
				zap.String("account", key.AccountID),
				zap.String("instrument", key.Instrument),
				zap.Error(err))
		}
	}

	windowErrs := e.recomputeDirty(ctx, dirty, stats)

	err := e.rebuildProfiles(ctx, dirty, stats)
	if err != nil {
		windowErrs = append(windowErrs, err)
	}

	err = e.rebuildSignals(ctx, stats)
	if err != nil {
		windowErrs = append(windowErrs, err)
	}

	BatchDurationSeconds.Observe(time.Since(start).Seconds())
	BatchesProcessedTotal.Inc()

	e.logger.Info("batch-processed",
		zap.String("run-id", stats.RunID),
		zap.Int("fills-in", stats.FillsIn),
		zap.Int("normalized", stats.Normalized),
		zap.Int("rejected", stats.Rejected),
		zap.Int("trades", stats.Trades),
		zap.Int("out-of-order", stats.OutOfOrder),
		zap.Int("windows", stats.Windows),
		zap.Int("accounts", stats.Accounts),
		zap.Duration("elapsed", time.Since(start)))

	return stats, errors.Join(windowErrs...)
}

// replayKeyLocked rebuilds one key's trades and live position from the
// retained fill log and returns the regenerated trades. Caller holds e.mu.
func (e *Engine) replayKeyLocked(key types.FillKey, markDirty func(string, time.Time)) []*types.ClosedTrade {
	var keyFills []*types.Fill
	for _, fill := range e.fills[key.AccountID] {
		if fill.Instrument == key.Instrument {
			keyFills = append(keyFills, fill)
		}
	}

	sort.SliceStable(keyFills, func(a, b int) bool {
		return types.Before(keyFills[a], keyFills[b])
	})

	// First-pass inferred directions used the position sign at their old
	// apply point; a late fill can change that sign, so they are re-derived
	// from scratch.
	for _, fill := range keyFills {
		if fill.DirectionInferred {
			fill.Direction = types.DirUnknown
		}
		markDirty(fill.AccountID, fill.Timestamp)
	}

	// Replay runs through the live tracker so subsequent batches continue
	// from the corrected position, not the pre-replay one.
	e.tracker.ResetKey(key)
	result := e.tracker.Process(keyFills)

	keyTrades := result.Trades
	for _, trade := range keyTrades {
		markDirty(trade.AccountID, trade.ClosedAt)
	}

	// Replace this key's trades in the account log. Other instruments of
	// the account are untouched.
	kept := e.trades[key.AccountID][:0]
	for _, trade := range e.trades[key.AccountID] {
		if trade.Instrument != key.Instrument {
			kept = append(kept, trade)
		} else {
			markDirty(trade.AccountID, trade.ClosedAt)
		}
	}
	e.trades[key.AccountID] = append(kept, keyTrades...)

	KeysReplayedTotal.Inc()
	return keyTrades
}

// recomputeDirty recomputes every dirty (account, day) window. Failures
// are per-window: one bad window never blocks the rest.
func (e *Engine) recomputeDirty(ctx context.Context, dirty map[string]map[time.Time]struct{}, stats *RunStats) []error {
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)

	sem := make(chan struct{}, e.cfg.Shards)

	for accountID, days := range dirty {
		wg.Add(1)
		sem <- struct{}{}

		go func(accountID string, days map[time.Time]struct{}) {
			defer wg.Done()
			defer func() { <-sem }()

			e.mu.Lock()
			fills := e.fills[accountID]
			trades := e.trades[accountID]
			e.mu.Unlock()

			for day := range days {
				w := aggregate.WindowForDay(day)
				_, err := e.daily.RecomputeWindow(ctx, accountID, w, fills, trades)
				if err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
					continue
				}

				mu.Lock()
				stats.Windows++
				mu.Unlock()
			}
		}(accountID, days)
	}
	wg.Wait()

	return errs
}

// rebuildProfiles rebuilds and classifies the profile of every account
// with a dirty window.
func (e *Engine) rebuildProfiles(ctx context.Context, dirty map[string]map[time.Time]struct{}, stats *RunStats) error {
	var errs []error

	for accountID := range dirty {
		buckets, err := e.store.DailyBuckets(ctx, accountID)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		p := profile.Build(accountID, buckets)
		p.Classification = e.classifier.Classify(p)

		err = e.store.UpsertProfile(ctx, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		e.mu.Lock()
		e.tags[accountID] = p.Classification
		e.mu.Unlock()

		stats.Accounts++
	}

	return errors.Join(errs...)
}

// rebuildSignals recomputes smart money positioning over the full retained
// fill stream of currently smart-tagged accounts.
func (e *Engine) rebuildSignals(ctx context.Context, stats *RunStats) error {
	e.mu.Lock()
	smart := make(map[string]struct{})
	for accountID, tag := range e.tags {
		if tag == types.TagSmartDirectional {
			smart[accountID] = struct{}{}
		}
	}

	var smartFills []*types.Fill
	for accountID := range smart {
		smartFills = append(smartFills, e.fills[accountID]...)
	}
	e.mu.Unlock()

	signals := e.signals.Aggregate(smart, smartFills)
	stats.Signals = len(signals)

	// Wholesale replace, like buckets: rows the recompute no longer
	// produces (an account dropped off the smart set) must not linger.
	return e.store.ReplaceSignals(ctx, signals)
}

// RecomputeRange re-runs the daily window computation for every known
// account over [start, end]. The explicit form of a continuous-aggregate
// refresh: always safe, always idempotent.
func (e *Engine) RecomputeRange(ctx context.Context, start, end time.Time) (int, error) {
	w := aggregate.NewWindow(start, end)

	e.mu.Lock()
	accounts := make([]string, 0, len(e.fills))
	for accountID := range e.fills {
		accounts = append(accounts, accountID)
	}
	e.mu.Unlock()
	sort.Strings(accounts)

	var errs []error
	windows := 0

	for _, accountID := range accounts {
		e.mu.Lock()
		fills := e.fills[accountID]
		trades := e.trades[accountID]
		e.mu.Unlock()

		_, err := e.daily.RecomputeWindow(ctx, accountID, w, fills, trades)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		windows++
	}

	return windows, errors.Join(errs...)
}

// Tags returns a copy of the current account classification map.
func (e *Engine) Tags() map[string]types.Classification {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]types.Classification, len(e.tags))
	for accountID, tag := range e.tags {
		out[accountID] = tag
	}
	return out
}
