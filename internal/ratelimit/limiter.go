package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// Limiter is a fixed-window counter keyed by caller-chosen strings. State is
// process-local; a multi-instance deployment rate limits per instance.
type Limiter struct {
	mu      sync.Mutex
	max     int
	period  time.Duration
	windows map[string]*window
	now     func() time.Time
}

// New creates a limiter allowing max hits per period for each key.
func New(max int, period time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		period:  period,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow reports whether another hit on key fits in the current window, counting
// it if so. A hit past the window starts a fresh one.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.period {
		l.windows[key] = &window{start: now, count: 1}
		return true
	}
	if w.count >= l.max {
		return false
	}
	w.count++
	return true
}

// Reset clears the window for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}
