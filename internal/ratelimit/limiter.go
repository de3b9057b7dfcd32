// Package ratelimit throttles outbound calls per logical endpoint using a
// sliding time window of request timestamps.
package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultMaxRequests = 10
	DefaultWindow      = time.Minute
)

// Limiter admits at most maxRequests calls per key within any trailing window.
// It is advisory and local to the process.
type Limiter struct {
	maxRequests int
	window      time.Duration
	now         func() time.Time

	mu    sync.Mutex
	calls map[string][]time.Time
}

type Option func(*Limiter)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New builds a limiter. Non-positive values fall back to the defaults.
func New(maxRequests int, window time.Duration, opts ...Option) *Limiter {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		calls:       make(map[string][]time.Time),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Allow reports whether a request for key may be sent now and, if so, records it.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.prune(key, now)
	if len(recent) >= l.maxRequests {
		l.calls[key] = recent
		return false
	}
	l.calls[key] = append(recent, now)
	return true
}

// Remaining returns how many more requests key may make in the current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.prune(key, l.now())
	l.calls[key] = recent
	return l.maxRequests - len(recent)
}

// Reset forgets every recorded request for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.calls, key)
}

// prune drops timestamps at or before now-window. Caller holds mu.
func (l *Limiter) prune(key string, now time.Time) []time.Time {
	ts := l.calls[key]
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}
