package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-notes-mcp/internal/rediskv"
	"github.com/redis/go-redis/v9"
)

// incrementScript counts a request against the window, opening it on the
// first request. Rejected requests are not counted. It returns the count
// including this request and the window's remaining TTL in ms.
var incrementScript = redis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count >= tonumber(ARGV[2]) then
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return {count + 1, ttl}
end
count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisLimiter shares counters between instances.
type RedisLimiter struct {
	client    redis.UniversalClient
	keyPrefix string
	cfg       Config
	nowTime   func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

func NewRedisLimiter(client redis.UniversalClient, keyPrefix string, cfg Config) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		keyPrefix: keyPrefix,
		cfg:       cfg.withDefaults(),
		nowTime:   time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, userID string) (Decision, error) {
	key := rediskv.Key(l.keyPrefix, rediskv.KeyTypeRateLimit, userID)

	result, err := incrementScript.Run(ctx, l.client, []string{key}, l.cfg.Window.Milliseconds(), l.cfg.MaxRequests).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit increment: %w", err)
	}
	if len(result) != 2 {
		return Decision{}, fmt.Errorf("rate limit increment: unexpected reply %v", result)
	}

	now := l.nowTime()
	resetAt := now.Add(time.Duration(result[1]) * time.Millisecond)
	return decide(result[0], l.cfg, resetAt, now), nil
}
