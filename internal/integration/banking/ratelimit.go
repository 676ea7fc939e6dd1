// Package banking implements the resilient protocol client, the Open-Banking
// adapter and the bank adapter registry.
package banking

import (
	"sync"
	"time"
)

// Clock abstracts time.Now so tests can drive the window deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// SlidingWindowLimiter bounds requests per logical key to MaxRequests within
// a trailing Window. The per-key timestamp queue is shared mutable state;
// prune, check and append happen under one lock so two concurrent requests
// sharing a key cannot both observe capacity and both proceed.
type SlidingWindowLimiter struct {
	mu          sync.Mutex
	windows     map[string][]time.Time
	maxRequests int
	window      time.Duration
	clock       Clock
}

// NewSlidingWindowLimiter creates a limiter with the given per-key bounds.
func NewSlidingWindowLimiter(maxRequests int, window time.Duration) *SlidingWindowLimiter {
	return NewSlidingWindowLimiterWithClock(maxRequests, window, systemClock{})
}

// NewSlidingWindowLimiterWithClock creates a limiter with an injected clock.
func NewSlidingWindowLimiterWithClock(maxRequests int, window time.Duration, clock Clock) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		windows:     make(map[string][]time.Time),
		maxRequests: maxRequests,
		window:      window,
		clock:       clock,
	}
}

// Allow checks whether a request under key may proceed now. When it may, the
// send is recorded in the window before returning; callers must therefore
// call Allow exactly once per attempted send.
func (l *SlidingWindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	cutoff := now.Add(-l.window)

	timestamps := l.windows[key]
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.maxRequests {
		l.windows[key] = kept
		return false
	}

	l.windows[key] = append(kept, now)
	return true
}

// Count returns how many requests are recorded in the trailing window for key.
func (l *SlidingWindowLimiter) Count(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.clock.Now().Add(-l.window)
	count := 0
	for _, ts := range l.windows[key] {
		if ts.After(cutoff) {
			count++
		}
	}
	return count
}

// Reset clears all recorded windows (useful for testing).
func (l *SlidingWindowLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string][]time.Time)
}

// Cleanup removes keys whose windows are fully expired (can be called
// periodically to free memory).
func (l *SlidingWindowLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.clock.Now().Add(-l.window)
	for key, timestamps := range l.windows {
		live := false
		for _, ts := range timestamps {
			if ts.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.windows, key)
		}
	}
}
