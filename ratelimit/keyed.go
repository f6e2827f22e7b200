package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type keyedEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter is a token bucket per key, used to throttle unauthenticated
// endpoints by remote address.
type KeyedLimiter struct {
	mu      sync.Mutex
	every   time.Duration
	burst   int
	entries map[string]*keyedEntry
	nowTime func() time.Time
}

func NewKeyedLimiter(every time.Duration, burst int) *KeyedLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &KeyedLimiter{
		every:   every,
		burst:   burst,
		entries: make(map[string]*keyedEntry),
		nowTime: time.Now,
	}
}

func (k *KeyedLimiter) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.nowTime()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyedEntry{limiter: rate.NewLimiter(rate.Every(k.every), k.burst)}
		k.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// Cleanup drops buckets idle for longer than maxIdle.
func (k *KeyedLimiter) Cleanup(maxIdle time.Duration) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	cutoff := k.nowTime().Add(-maxIdle)
	removed := 0
	for key, entry := range k.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(k.entries, key)
			removed++
		}
	}
	return removed
}
