// Package ratelimit implements per-tool fixed-window request counting.
// Windows roll forward lazily on access; no background timers. State is
// process-local: losing it on restart just resets the window, which is a
// leniency hazard, not a correctness one.
package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// Limiter tracks one fixed window per tool name.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewLimiter creates an empty Limiter.
func NewLimiter() *Limiter {
	return &Limiter{windows: make(map[string]*window), now: time.Now}
}

// Allow records one call against the tool's window and reports whether it
// fits under max. When it doesn't, resetAt is when the current window
// elapses and calls are admitted again.
func (l *Limiter) Allow(toolName string, max int, span time.Duration) (ok bool, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, exists := l.windows[toolName]
	if !exists || now.Sub(w.start) >= span {
		w = &window{start: now}
		l.windows[toolName] = w
	}

	if w.count >= max {
		return false, w.start.Add(span)
	}
	w.count++
	return true, time.Time{}
}

// SetClock overrides the time source, for tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
