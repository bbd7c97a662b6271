// Package rolecache is a process-wide TTL cache from user id to role names,
// saving a DB round trip per authenticated request. Role mutations must call
// Invalidate so the next request sees the change; TTL expiry alone is not a
// correctness mechanism, only a memory bound.
package rolecache

import (
	"sync"
	"time"
)

type entry struct {
	roles     []string
	expiresAt time.Time
}

type Cache struct {
	mu         sync.Mutex
	entries    map[uint]entry
	defaultTTL time.Duration
}

func New(defaultTTL time.Duration) *Cache {
	return &Cache{
		entries:    make(map[uint]entry),
		defaultTTL: defaultTTL,
	}
}

// Get returns the cached role set and true on a hit. Expired entries are
// removed and reported as a miss. The returned slice is a copy.
func (c *Cache) Get(userID uint) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[userID]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.After(time.Now()) {
		delete(c.entries, userID)
		return nil, false
	}

	roles := make([]string, len(e.roles))
	copy(roles, e.roles)
	return roles, true
}

// Put stores the role set for a user. A zero ttl falls back to the cache
// default; a negative ttl stores an entry that is already expired. The slice
// is copied; callers keep ownership of theirs.
func (c *Cache) Put(userID uint, roles []string, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	stored := make([]string, len(roles))
	copy(stored, roles)

	c.mu.Lock()
	c.entries[userID] = entry{roles: stored, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Invalidate drops the entry for a user. Called on every role mutation,
// before the mutating request returns its response.
func (c *Cache) Invalidate(userID uint) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

// Cleanup removes all expired entries.
func (c *Cache) Cleanup() {
	now := time.Now()
	c.mu.Lock()
	for id, e := range c.entries {
		if !e.expiresAt.After(now) {
			delete(c.entries, id)
		}
	}
	c.mu.Unlock()
}

// Len reports the number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// StartJanitor runs Cleanup on the given interval until the returned stop
// function is called.
func (c *Cache) StartJanitor(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Cleanup()
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
