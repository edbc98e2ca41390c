package catalog

import (
	"sync"
	"time"
)

// Cache holds a single value for a fixed duration.
type Cache[T any] struct {
	expiry time.Duration
	now    func() time.Time

	mu       sync.Mutex
	value    T
	storedAt time.Time
	ok       bool
}

// NewCache returns an empty cache. If now is nil, time.Now is used.
func NewCache[T any](expiry time.Duration, now func() time.Time) *Cache[T] {
	if now == nil {
		now = time.Now
	}
	return &Cache[T]{
		expiry: expiry,
		now:    now,
	}
}

// Get returns the cached value if one was stored less than expiry ago.
func (c *Cache[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ok || c.now().Sub(c.storedAt) >= c.expiry {
		var zero T
		return zero, false
	}
	return c.value, true
}

// Set stores v and resets its age.
func (c *Cache[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = v
	c.storedAt = c.now()
	c.ok = true
}

// Invalidate drops the stored value.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	c.value = zero
	c.storedAt = time.Time{}
	c.ok = false
}
