package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int64
}

// MemoryLimiter keeps counters in process. Suitable for a single instance.
type MemoryLimiter struct {
	mu      sync.Mutex
	cfg     Config
	windows map[string]*window
	nowTime func() time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

type MemoryOption func(*MemoryLimiter)

// WithClock sets the time source (primarily for testing).
func WithClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) {
		l.nowTime = now
	}
}

func NewMemoryLimiter(cfg Config, options ...MemoryOption) *MemoryLimiter {
	l := &MemoryLimiter{
		cfg:     cfg.withDefaults(),
		windows: make(map[string]*window),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, userID string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowTime()
	w, ok := l.windows[userID]
	if !ok || !now.Before(w.start.Add(l.cfg.Window)) {
		w = &window{start: now}
		l.windows[userID] = w
	}
	// Rejected requests are not counted.
	if w.count < int64(l.cfg.MaxRequests) {
		w.count++
		return decide(w.count, l.cfg, w.start.Add(l.cfg.Window), now), nil
	}
	return decide(w.count+1, l.cfg, w.start.Add(l.cfg.Window), now), nil
}

// Reset clears the counter for a user.
func (l *MemoryLimiter) Reset(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, userID)
}

// Cleanup removes closed windows and returns how many were removed.
func (l *MemoryLimiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowTime()
	removed := 0
	for userID, w := range l.windows {
		if !now.Before(w.start.Add(l.cfg.Window)) {
			delete(l.windows, userID)
			removed++
		}
	}
	return removed
}
