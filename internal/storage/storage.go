package storage

import (
	"context"
	"errors"
	"time"

	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the interface for persisting pipeline outputs.
type Storage interface {
	// ReplaceDailyBuckets replaces all bucket rows for (account, day in
	// [start, end]) wholesale with the given set. Days absent from the
	// set are deleted. This is the idempotence contract of the daily
	// aggregator.
	ReplaceDailyBuckets(ctx context.Context, accountID string, start, end time.Time, buckets []*types.DailyBucket) error

	// DailyBuckets returns all buckets for one account ordered by day.
	DailyBuckets(ctx context.Context, accountID string) ([]*types.DailyBucket, error)

	// BucketAccounts returns all account ids with at least one bucket.
	BucketAccounts(ctx context.Context) ([]string, error)

	// UpsertProfile writes a trader profile wholesale.
	UpsertProfile(ctx context.Context, profile *types.TraderProfile) error

	// Profile returns one account's profile, or ErrNotFound.
	Profile(ctx context.Context, accountID string) (*types.TraderProfile, error)

	// TopProfiles returns profiles with the given tag ordered by risk
	// ratio descending. limit <= 0 means no limit.
	TopProfiles(ctx context.Context, tag types.Classification, limit int) ([]*types.TraderProfile, error)

	// InsertClosedTrades appends to the closed-trade audit log.
	InsertClosedTrades(ctx context.Context, trades []*types.ClosedTrade) error

	// ReplaceClosedTrades swaps one (account, instrument) key's audit rows
	// for the regenerated set, keeping the log consistent with a key
	// replay. Trades of other keys are untouched.
	ReplaceClosedTrades(ctx context.Context, accountID, instrument string, trades []*types.ClosedTrade) error

	// ReplaceSignals replaces the asset signal set wholesale. Rows absent
	// from the new set are deleted; signals are always recomputed in full,
	// so the stored set mirrors the latest recompute exactly.
	ReplaceSignals(ctx context.Context, signals []*types.AssetSignal) error

	// Signals returns signal buckets for one instrument ordered by
	// bucket start descending. limit <= 0 means no limit.
	Signals(ctx context.Context, instrument string, limit int) ([]*types.AssetSignal, error)

	// Close closes the storage connection.
	Close() error
}
