package cache

import (
	"testing"
	"time"

	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
	"go.uber.org/zap"
)

func newRistretto(t *testing.T) *RistrettoCache {
	t.Helper()

	logger, _ := zap.NewDevelopment()
	c, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		t.Fatalf("NewRistrettoCache() error = %v", err)
	}
	t.Cleanup(c.Close)

	return c.(*RistrettoCache)
}

func TestRistrettoCache_SetAndGet(t *testing.T) {
	cache := newRistretto(t)

	profile := &types.TraderProfile{AccountID: "0xabc", Classification: types.TagRetail}
	if !cache.Set("profile:0xabc", profile, time.Hour) {
		t.Fatal("Set() rejected by admission")
	}
	cache.Wait()

	got, found := cache.Get("profile:0xabc")
	if !found {
		t.Fatal("expected cached profile")
	}
	if got.(*types.TraderProfile).AccountID != "0xabc" {
		t.Errorf("cached AccountID = %q", got.(*types.TraderProfile).AccountID)
	}

	if _, found := cache.Get("profile:0xmissing"); found {
		t.Error("expected miss for unknown key")
	}
}

func TestRistrettoCache_Delete(t *testing.T) {
	cache := newRistretto(t)

	cache.Set("profile:0xabc", "v", time.Hour)
	cache.Wait()

	if _, found := cache.Get("profile:0xabc"); !found {
		t.Fatal("expected key before delete")
	}

	cache.Delete("profile:0xabc")

	if _, found := cache.Get("profile:0xabc"); found {
		t.Error("expected key gone after delete")
	}
}

func TestRistrettoCache_TTLExpiry(t *testing.T) {
	cache := newRistretto(t)

	cache.Set("profile:0xabc", "v", 150*time.Millisecond)
	cache.Wait()

	if _, found := cache.Get("profile:0xabc"); !found {
		t.Fatal("expected key before TTL expiry")
	}

	time.Sleep(300 * time.Millisecond)

	if _, found := cache.Get("profile:0xabc"); found {
		t.Error("expected key expired after TTL")
	}
}

func TestRistrettoCache_Clear(t *testing.T) {
	cache := newRistretto(t)

	cache.Set("profile:0xaaa", "a", time.Hour)
	cache.Set("profile:0xbbb", "b", time.Hour)
	cache.Wait()

	_, foundA := cache.Get("profile:0xaaa")
	_, foundB := cache.Get("profile:0xbbb")
	if !foundA || !foundB {
		t.Skip("admission rejected a seed entry")
	}

	cache.Clear()

	if _, found := cache.Get("profile:0xaaa"); found {
		t.Error("expected empty cache after clear")
	}
	if _, found := cache.Get("profile:0xbbb"); found {
		t.Error("expected empty cache after clear")
	}
}
