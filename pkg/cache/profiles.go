package cache

import (
	"time"

	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
)

const profileKeyPrefix = "profile:"

// ProfileCache is a typed wrapper serving trader profile lookups on the
// read path. The pipeline invalidates entries when profiles are rebuilt.
type ProfileCache struct {
	cache Cache
	ttl   time.Duration
}

// NewProfileCache wraps a cache with profile typing and a fixed TTL.
func NewProfileCache(cache Cache, ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		cache: cache,
		ttl:   ttl,
	}
}

// Get returns a cached profile for the account, if present.
func (p *ProfileCache) Get(accountID string) (*types.TraderProfile, bool) {
	value, ok := p.cache.Get(profileKeyPrefix + accountID)
	if !ok {
		return nil, false
	}

	profile, ok := value.(*types.TraderProfile)
	return profile, ok
}

// Set caches a profile.
func (p *ProfileCache) Set(profile *types.TraderProfile) {
	p.cache.Set(profileKeyPrefix+profile.AccountID, profile, p.ttl)
}

// Invalidate drops an account's cached profile.
func (p *ProfileCache) Invalidate(accountID string) {
	p.cache.Delete(profileKeyPrefix + accountID)
}
