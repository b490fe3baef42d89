package store

import (
	"sync"
	"sync/atomic"
)

// CacheMetrics holds cached-store statistics for observability.
type CacheMetrics struct {
	Hits   atomic.Int64
	Misses atomic.Int64
}

// Cached is a read-through decorator over a Store. Engagement attribution
// reads the last-view snapshot and user properties on every derived event;
// caching keeps those reads off the database. Writes go through to the
// backing store and update the cache in place.
type Cached struct {
	backing Store
	mu      sync.RWMutex
	values  map[string]cachedValue
	metrics CacheMetrics
}

// cachedValue remembers presence as well as content so that absent keys are
// not re-queried on every read.
type cachedValue struct {
	value   string
	present bool
}

// NewCached wraps backing with a read-through cache.
func NewCached(backing Store) *Cached {
	return &Cached{
		backing: backing,
		values:  make(map[string]cachedValue),
	}
}

// GetString returns the value for key and whether it was present.
func (c *Cached) GetString(key string) (string, bool) {
	c.mu.RLock()
	cv, ok := c.values[key]
	c.mu.RUnlock()
	if ok {
		c.metrics.Hits.Add(1)
		return cv.value, cv.present
	}

	c.metrics.Misses.Add(1)
	value, present := c.backing.GetString(key)

	c.mu.Lock()
	c.values[key] = cachedValue{value: value, present: present}
	c.mu.Unlock()

	return value, present
}

// PutString stores value under key, overwriting any prior value.
func (c *Cached) PutString(key, value string) {
	c.backing.PutString(key, value)

	c.mu.Lock()
	c.values[key] = cachedValue{value: value, present: true}
	c.mu.Unlock()
}

// GetBool returns the boolean for key, or def when absent or malformed.
func (c *Cached) GetBool(key string, def bool) bool {
	raw, ok := c.GetString(key)
	if !ok {
		return def
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	default:
		return def
	}
}

// PutBool stores a boolean under key.
func (c *Cached) PutBool(key string, value bool) {
	if value {
		c.PutString(key, "true")
	} else {
		c.PutString(key, "false")
	}
}

// Remove deletes key. Removing an absent key is a no-op.
func (c *Cached) Remove(key string) {
	c.backing.Remove(key)

	c.mu.Lock()
	c.values[key] = cachedValue{present: false}
	c.mu.Unlock()
}

// Metrics returns current hit and miss counts.
func (c *Cached) Metrics() (hits, misses int64) {
	return c.metrics.Hits.Load(), c.metrics.Misses.Load()
}
