package common

import (
	"sync"
	"time"
)

// TTLCache is a generic expiring map guarded by a RWMutex.
// Expired entries are dropped lazily on read and in bulk by Purge.
type TTLCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]ttlEntry[V]
	ttl     time.Duration
}

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewTTLCache creates a cache whose entries expire after ttl.
func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{
		entries: make(map[string]ttlEntry[V]),
		ttl:     ttl,
	}
}

// Set stores a value under key with the configured TTL.
func (c *TTLCache[V]) Set(key string, value V) {
	c.SetAt(key, value, time.Now())
}

// SetAt stores a value using an explicit clock, for tests.
func (c *TTLCache[V]) SetAt(key string, value V, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ttlEntry[V]{value: value, expiresAt: now.Add(c.ttl)}
}

// Get returns the value for key if present and not expired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	return c.GetAt(key, time.Now())
}

// GetAt reads using an explicit clock, for tests.
func (c *TTLCache[V]) GetAt(key string, now time.Time) (V, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}
	if now.After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under write lock; another writer may have refreshed it.
		if current, exists := c.entries[key]; exists && now.After(current.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Len returns the number of entries, including any not yet purged.
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge removes all expired entries and returns how many were dropped.
func (c *TTLCache[V]) Purge(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			dropped++
		}
	}
	return dropped
}
