package api

import (
	"sync"
	"time"
)

// ExpiringCache memoizes the result of an expensive call for a fixed TTL:
// within the window the cached value is returned to every caller; after
// expiry the next caller recomputes and refreshes it. This bounds fan-in
// amplification on hot read endpoints (the consensus-status endpoint in
// particular) under load.
type ExpiringCache struct {
	ttl time.Duration

	mu       sync.Mutex
	value    any
	err      error
	validAt  time.Time
	inFlight chan struct{}
}

// NewExpiringCache returns a cache that recomputes at most once per ttl.
func NewExpiringCache(ttl time.Duration) *ExpiringCache {
	return &ExpiringCache{ttl: ttl}
}

// Get returns the cached value if still within its TTL; otherwise it calls
// compute, caches the result (success or error), and returns it. Callers
// that arrive while a recompute is already in flight wait for that one
// call to finish rather than triggering their own.
func (c *ExpiringCache) Get(compute func() (any, error)) (any, error) {
	c.mu.Lock()
	if time.Now().Before(c.validAt) {
		v, err := c.value, c.err
		c.mu.Unlock()
		return v, err
	}
	if c.inFlight != nil {
		wait := c.inFlight
		c.mu.Unlock()
		<-wait
		c.mu.Lock()
		v, err := c.value, c.err
		c.mu.Unlock()
		return v, err
	}
	done := make(chan struct{})
	c.inFlight = done
	c.mu.Unlock()

	v, err := compute()

	c.mu.Lock()
	c.value, c.err = v, err
	c.validAt = time.Now().Add(c.ttl)
	c.inFlight = nil
	c.mu.Unlock()
	close(done)

	return v, err
}
