// Package ratelimit implements the per-client token bucket shared by the
// HTTP and SSH surfaces.
package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter enforces a per-key token bucket refilled at a fixed rate.
type Limiter struct {
	ratePerSecond float64
	burst         int

	mu      sync.Mutex
	buckets map[string]bucket
}

// New builds a limiter allowing limitPerMinute requests per key with the
// given burst. Non-positive values fall back to 30/min and a burst of 10.
func New(limitPerMinute, burst int) *Limiter {
	if limitPerMinute <= 0 {
		limitPerMinute = 30
	}
	if burst <= 0 {
		burst = 10
	}
	return &Limiter{
		ratePerSecond: float64(limitPerMinute) / 60.0,
		burst:         burst,
		buckets:       make(map[string]bucket),
	}
}

// Allow consumes a token for key at now and reports whether one was available.
func (l *Limiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[key]
	if b.last.IsZero() {
		b = bucket{tokens: float64(l.burst), last: now}
	}

	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * l.ratePerSecond
		if b.tokens > float64(l.burst) {
			b.tokens = float64(l.burst)
		}
		b.last = now
	}

	if b.tokens < 1 {
		l.buckets[key] = b
		return false
	}

	b.tokens--
	l.buckets[key] = b
	return true
}

// Prune drops buckets idle for longer than maxIdle; a dropped bucket is
// indistinguishable from a full one.
func (l *Limiter) Prune(now time.Time, maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, b := range l.buckets {
		if now.Sub(b.last) > maxIdle {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}
