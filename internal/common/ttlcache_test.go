package common

import (
	"testing"
	"time"
)

func TestTTLCacheSetGet(t *testing.T) {
	cache := NewTTLCache[int](2 * time.Minute)
	now := time.Date(2026, 1, 7, 11, 0, 0, 0, time.UTC)

	cache.SetAt("foo", 42, now)

	got, ok := cache.GetAt("foo", now.Add(time.Minute))
	if !ok || got != 42 {
		t.Errorf("GetAt within TTL = (%d, %v), want (42, true)", got, ok)
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	cache := NewTTLCache[string](2 * time.Minute)
	now := time.Date(2026, 1, 7, 11, 0, 0, 0, time.UTC)

	cache.SetAt("foo", "bar", now)

	if _, ok := cache.GetAt("foo", now.Add(2*time.Minute+time.Second)); ok {
		t.Error("entry should have expired after TTL")
	}

	// Expired read drops the entry.
	if cache.Len() != 0 {
		t.Errorf("Len after expired read = %d, want 0", cache.Len())
	}
}

func TestTTLCacheMissingKey(t *testing.T) {
	cache := NewTTLCache[int](time.Minute)

	if _, ok := cache.Get("absent"); ok {
		t.Error("Get on missing key should return false")
	}
}

func TestTTLCacheRefreshExtends(t *testing.T) {
	cache := NewTTLCache[int](2 * time.Minute)
	now := time.Date(2026, 1, 7, 11, 0, 0, 0, time.UTC)

	cache.SetAt("foo", 1, now)
	cache.SetAt("foo", 2, now.Add(90*time.Second))

	// Original entry would be expired by now, refreshed one is not.
	got, ok := cache.GetAt("foo", now.Add(3*time.Minute))
	if !ok || got != 2 {
		t.Errorf("GetAt after refresh = (%d, %v), want (2, true)", got, ok)
	}
}

func TestTTLCachePurge(t *testing.T) {
	cache := NewTTLCache[int](time.Minute)
	now := time.Date(2026, 1, 7, 11, 0, 0, 0, time.UTC)

	cache.SetAt("a", 1, now)
	cache.SetAt("b", 2, now)
	cache.SetAt("c", 3, now.Add(2*time.Minute))

	dropped := cache.Purge(now.Add(90 * time.Second))
	if dropped != 2 {
		t.Errorf("Purge dropped %d entries, want 2", dropped)
	}
	if cache.Len() != 1 {
		t.Errorf("Len after purge = %d, want 1", cache.Len())
	}
}
