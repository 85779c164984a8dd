package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// RistrettoCache backs the profile read path with an in-process TinyLFU
// cache. Admission is probabilistic: a Set may be rejected under pressure,
// which is acceptable here because every entry can be rebuilt from storage.
type RistrettoCache struct {
	inner  *ristretto.Cache
	logger *zap.Logger
}

// RistrettoConfig sizes the cache. Cost is counted per entry, not per
// byte: one cached profile is one unit regardless of its size.
type RistrettoConfig struct {
	NumCounters int64 // frequency counters, ~10x the expected entry count
	MaxCost     int64 // entry capacity
	BufferItems int64 // keys per Get buffer
	Logger      *zap.Logger
}

// NewRistrettoCache creates the cache with ristretto's internal metrics
// enabled.
func NewRistrettoCache(cfg *RistrettoConfig) (Cache, error) {
	inner, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoCache{inner: inner, logger: cfg.Logger}, nil
}

// Get returns the cached value for a key, counting the hit or miss.
func (r *RistrettoCache) Get(key string) (interface{}, bool) {
	value, found := r.inner.Get(key)
	if !found {
		CacheMissesTotal.Inc()
		return nil, false
	}

	CacheHitsTotal.Inc()
	r.logger.Debug("profile-cache-hit", zap.String("key", key))
	return value, true
}

// Set stores a value at unit cost with the given TTL. Returns false when
// the admission policy rejects the entry.
func (r *RistrettoCache) Set(key string, value interface{}, ttl time.Duration) bool {
	admitted := r.inner.SetWithTTL(key, value, 1, ttl)
	if admitted {
		CacheSetsTotal.Inc()
	}
	return admitted
}

// Delete removes one key.
func (r *RistrettoCache) Delete(key string) {
	r.inner.Del(key)
	CacheDeletesTotal.Inc()
}

// Clear drops every entry. Used when a recompute invalidates the whole
// read side at once.
func (r *RistrettoCache) Clear() {
	r.inner.Clear()
	r.logger.Info("profile-cache-cleared")
}

// Close releases the cache's internal goroutines.
func (r *RistrettoCache) Close() {
	r.inner.Close()
}

// Metrics exposes ristretto's own counters for inspection.
func (r *RistrettoCache) Metrics() *ristretto.Metrics {
	return r.inner.Metrics
}

// Wait blocks until pending writes are applied. Tests use it to make Set
// effects observable before asserting.
func (r *RistrettoCache) Wait() {
	r.inner.Wait()
}
