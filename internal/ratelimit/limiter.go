// Package ratelimit enforces a per-key fixed-window request budget, keyed by
// client IP at the HTTP layer. A fixed window admits up to twice the budget
// across a window boundary; that trade-off buys O(1) state per key.
package ratelimit

import (
	"sync"
	"time"
)

type windowEntry struct {
	count       int
	windowStart time.Time
}

type Limiter struct {
	mu          sync.Mutex
	entries     map[string]windowEntry
	maxRequests int
	window      time.Duration
}

// New builds an independent limiter with the given policy. Limiters are
// constructed once at startup and injected; there is no process-global
// instance to re-initialize.
func New(maxRequests int, window time.Duration) *Limiter {
	if maxRequests <= 0 {
		maxRequests = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		entries:     make(map[string]windowEntry),
		maxRequests: maxRequests,
		window:      window,
	}
}

// Allow reports whether a request from key fits the current window, counting
// it if so. Once the cap is hit, denied calls leave the counter untouched,
// so hammering a closed window does not extend the lockout.
func (l *Limiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || now.Sub(e.windowStart) >= l.window {
		l.entries[key] = windowEntry{count: 1, windowStart: now}
		return true
	}

	if e.count < l.maxRequests {
		e.count++
		l.entries[key] = e
		return true
	}

	return false
}

// Status returns the current count for key and the seconds until its window
// resets, for rate-limit response headers. A key with no live window reports
// a zero count and a full window.
func (l *Limiter) Status(key string) (count int, resetSeconds int) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || now.Sub(e.windowStart) >= l.window {
		return 0, int(l.window / time.Second)
	}
	return e.count, int((l.window - now.Sub(e.windowStart)) / time.Second)
}

// Max returns the per-window request budget.
func (l *Limiter) Max() int { return l.maxRequests }

// Cleanup drops every entry whose window has fully elapsed.
func (l *Limiter) Cleanup() {
	now := time.Now()
	l.mu.Lock()
	for key, e := range l.entries {
		if now.Sub(e.windowStart) >= l.window {
			delete(l.entries, key)
		}
	}
	l.mu.Unlock()
}

// StartJanitor runs Cleanup on the given interval until the returned stop
// function is called.
func (l *Limiter) StartJanitor(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Cleanup()
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
