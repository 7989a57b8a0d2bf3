// Package ttlcache provides a bounded expiring key-value store.
package ttlcache

import (
	"sync"
	"time"

	"github.com/nanao/jubox/internal/infra/clock"
)

type entry[V any] struct {
	value      V
	storedAt   time.Time
	expiresAt  time.Time
	lastAccess time.Time
}

// Cache is a bounded TTL cache with LRU-ish eviction. Expired entries are
// never returned by Get; GetStale exposes them for the explicit
// serve-stale-on-total-failure path.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
	ttl     time.Duration
	maxSize int
	clk     clock.Clock
}

// New creates a cache holding at most maxSize entries, each valid for ttl.
func New[V any](ttl time.Duration, maxSize int, clk clock.Clock) *Cache[V] {
	if clk == nil {
		clk = clock.System{}
	}
	return &Cache[V]{
		entries: make(map[string]*entry[V]),
		ttl:     ttl,
		maxSize: maxSize,
		clk:     clk,
	}
}

// Get returns the value for key if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}

	now := c.clk.Now()
	if now.After(e.expiresAt) {
		var zero V
		return zero, false
	}

	e.lastAccess = now
	return e.value, true
}

// GetStale returns the value for key regardless of expiry. The second
// return reports presence, the third whether the entry is past its TTL.
func (c *Cache[V]) GetStale(key string) (V, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false, false
	}

	now := c.clk.Now()
	e.lastAccess = now
	return e.value, true, now.After(e.expiresAt)
}

// Set stores value under key, evicting expired and least-recently-used
// entries when the cache is full.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxSize {
		c.evictLocked(now)
	}

	c.entries[key] = &entry[V]{
		value:      value,
		storedAt:   now,
		expiresAt:  now.Add(c.ttl),
		lastAccess: now,
	}
}

// Delete removes key from the cache.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLocked makes room for one entry: expired entries go first, then the
// least recently accessed one. Must be called with the lock held.
func (c *Cache[V]) evictLocked(now time.Time) {
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxSize {
		return
	}

	var oldestKey string
	var oldestAccess time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.lastAccess.Before(oldestAccess) {
			oldestKey = k
			oldestAccess = e.lastAccess
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
