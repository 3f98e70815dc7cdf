// Package cache provides a small in-memory TTL cache for expensive
// calculation results. It stores opaque byte slices; callers encode values
// with msgpack so entries stay compact and copyable.
package cache

import (
	"sync"
	"time"
)

// DefaultCapacity bounds the number of live entries. When full, the entry
// closest to expiry is evicted.
const DefaultCapacity = 256

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Cache is a bounded TTL key/value store, safe for concurrent use.
// Keys are namespaced by section so independent calculations cannot collide.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]entry
	capacity int
	now      func() time.Time
}

// New creates a cache with the default capacity.
func New() *Cache {
	return NewWithCapacity(DefaultCapacity)
}

// NewWithCapacity creates a cache holding at most capacity entries.
func NewWithCapacity(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		entries:  make(map[string]entry),
		capacity: capacity,
		now:      time.Now,
	}
}

// Get returns the cached bytes for section/key, or false when the entry is
// missing or expired. Expired entries are removed on access.
func (c *Cache) Get(section, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := section + "/" + key
	e, ok := c.entries[k]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, k)
		return nil, false
	}
	return e.data, true
}

// Set stores bytes under section/key for ttl.
func (c *Cache) Set(section, key string, data []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := section + "/" + key
	if _, exists := c.entries[k]; !exists && len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	c.entries[k] = entry{data: data, expiresAt: c.now().Add(ttl)}
}

// Invalidate removes every entry in a section.
func (c *Cache) Invalidate(section string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := section + "/"
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of live entries, expired ones included until
// they are touched or evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldest drops the entry with the earliest expiry. Caller holds mu.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestExpiry time.Time
	first := true
	for k, e := range c.entries {
		if first || e.expiresAt.Before(oldestExpiry) {
			oldestKey = k
			oldestExpiry = e.expiresAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
