// Package cache provides a small time-bounded in-process cache.
// This is part of the platform layer and contains no business logic.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a mutex-guarded cache whose entries expire after a fixed duration.
// Writers that change the underlying data must call Invalidate for the key;
// expiry alone only bounds staleness, it does not replace invalidation.
type TTL[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry[V]
	now     func() time.Time
}

// NewTTL creates a cache with the given entry lifetime.
func NewTTL[V any](ttl time.Duration) *TTL[V] {
	return &TTL[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// Get returns the cached value and true if present and not expired.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(item.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return item.value, true
}

// Set stores a value under the key with a fresh expiry.
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate removes the entry for the key, if any.
func (c *TTL[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports the number of entries, counting expired entries that have not
// been read since expiry.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
