// Package ratelimit implements per-user fixed window request limits.
//
// A window opens on the first request a user makes and closes Window later;
// the counter is discarded when the window closes. Counting is an atomic
// check-and-increment in every backend.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // zero when allowed
	ResetAt    time.Time
}

// Limiter counts requests per user.
type Limiter interface {
	Allow(ctx context.Context, userID string) (Decision, error)
}

// Config holds configuration for a limiter.
type Config struct {
	// MaxRequests is the number of requests allowed per window.
	// Default: 100
	MaxRequests int

	// Window is the window length.
	// Default: 60 seconds
	Window time.Duration
}

// DefaultConfig returns the default limiter configuration.
func DefaultConfig() Config {
	return Config{
		MaxRequests: 100,
		Window:      60 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.MaxRequests <= 0 {
		c.MaxRequests = defaults.MaxRequests
	}
	if c.Window <= 0 {
		c.Window = defaults.Window
	}
	return c
}

// retryAfter rounds up to whole seconds, never exceeding the window.
func retryAfter(remaining, window time.Duration) time.Duration {
	if remaining <= 0 {
		return time.Second
	}
	rounded := ((remaining + time.Second - 1) / time.Second) * time.Second
	if rounded > window {
		return window
	}
	return rounded
}

func decide(count int64, cfg Config, resetAt, now time.Time) Decision {
	d := Decision{Limit: cfg.MaxRequests, ResetAt: resetAt}
	if count <= int64(cfg.MaxRequests) {
		d.Allowed = true
		d.Remaining = cfg.MaxRequests - int(count)
		return d
	}
	d.RetryAfter = retryAfter(resetAt.Sub(now), cfg.Window)
	return d
}
