package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
	"go.uber.org/zap"
)

type bucketKey struct {
	accountID string
	day       time.Time
}

type sigKey struct {
	instrument string
	bucket     time.Time
}

// MemoryStorage implements Storage with in-process maps. Used for tests
// and single-shot batch runs that only need the computed outputs.
type MemoryStorage struct {
	mu       sync.RWMutex
	buckets  map[bucketKey]*types.DailyBucket
	profiles map[string]*types.TraderProfile
	trades   []*types.ClosedTrade
	signals  map[sigKey]*types.AssetSignal
	logger   *zap.Logger
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage(logger *zap.Logger) *MemoryStorage {
	logger.Info("memory-storage-initialized")
	return &MemoryStorage{
		buckets:  make(map[bucketKey]*types.DailyBucket),
		profiles: make(map[string]*types.TraderProfile),
		signals:  make(map[sigKey]*types.AssetSignal),
		logger:   logger,
	}
}

// ReplaceDailyBuckets replaces all rows for (account, day in window).
func (m *MemoryStorage) ReplaceDailyBuckets(ctx context.Context, accountID string, start, end time.Time, buckets []*types.DailyBucket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.buckets {
		if key.accountID == accountID && !key.day.Before(start) && !key.day.After(end) {
			delete(m.buckets, key)
		}
	}

	for _, b := range buckets {
		copied := *b
		m.buckets[bucketKey{accountID: b.AccountID, day: b.Day}] = &copied
	}

	return nil
}

// DailyBuckets returns one account's buckets ordered by day.
func (m *MemoryStorage) DailyBuckets(ctx context.Context, accountID string) ([]*types.DailyBucket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.DailyBucket
	for key, b := range m.buckets {
		if key.accountID == accountID {
			copied := *b
			out = append(out, &copied)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Day.Before(out[j].Day)
	})

	return out, nil
}

// BucketAccounts returns all account ids with at least one bucket.
func (m *MemoryStorage) BucketAccounts(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for key := range m.buckets {
		seen[key.accountID] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for accountID := range seen {
		out = append(out, accountID)
	}
	sort.Strings(out)

	return out, nil
}

// UpsertProfile writes a profile wholesale.
func (m *MemoryStorage) UpsertProfile(ctx context.Context, profile *types.TraderProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *profile
	m.profiles[profile.AccountID] = &copied

	return nil
}

// Profile returns one account's profile.
func (m *MemoryStorage) Profile(ctx context.Context, accountID string) (*types.TraderProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[accountID]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *p
	return &copied, nil
}

// TopProfiles returns tagged profiles ordered by risk ratio descending.
func (m *MemoryStorage) TopProfiles(ctx context.Context, tag types.Classification, limit int) ([]*types.TraderProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.TraderProfile
	for _, p := range m.profiles {
		if p.Classification == tag {
			copied := *p
			out = append(out, &copied)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RiskRatio != out[j].RiskRatio {
			return out[i].RiskRatio > out[j].RiskRatio
		}
		return out[i].AccountID < out[j].AccountID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

// InsertClosedTrades appends to the audit log.
func (m *MemoryStorage) InsertClosedTrades(ctx context.Context, trades []*types.ClosedTrade) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range trades {
		copied := *t
		m.trades = append(m.trades, &copied)
	}

	return nil
}

// ReplaceClosedTrades swaps one key's audit rows for the regenerated set.
func (m *MemoryStorage) ReplaceClosedTrades(ctx context.Context, accountID, instrument string, trades []*types.ClosedTrade) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.trades[:0]
	for _, t := range m.trades {
		if t.AccountID != accountID || t.Instrument != instrument {
			kept = append(kept, t)
		}
	}
	m.trades = kept

	for _, t := range trades {
		copied := *t
		m.trades = append(m.trades, &copied)
	}

	return nil
}

// ClosedTrades returns a copy of the audit log, for tests and inspection.
func (m *MemoryStorage) ClosedTrades() []*types.ClosedTrade {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.ClosedTrade, len(m.trades))
	for i, t := range m.trades {
		copied := *t
		out[i] = &copied
	}

	return out
}

// ReplaceSignals replaces the signal set wholesale.
func (m *MemoryStorage) ReplaceSignals(ctx context.Context, signals []*types.AssetSignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.signals = make(map[sigKey]*types.AssetSignal, len(signals))
	for _, s := range signals {
		copied := *s
		m.signals[sigKey{instrument: s.Instrument, bucket: s.BucketStart}] = &copied
	}

	return nil
}

// Signals returns signal buckets for one instrument, newest first.
func (m *MemoryStorage) Signals(ctx context.Context, instrument string, limit int) ([]*types.AssetSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.AssetSignal
	for key, s := range m.signals {
		if key.instrument == instrument {
			copied := *s
			out = append(out, &copied)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].BucketStart.After(out[j].BucketStart)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

// Close is a no-op for memory storage.
func (m *MemoryStorage) Close() error {
	m.logger.Info("closing-memory-storage")
	return nil
}
