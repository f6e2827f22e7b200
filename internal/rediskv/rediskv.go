// Package rediskv holds the Redis client wiring shared by the Redis backed
// stores.
package rediskv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/go-notes-mcp/internal/config"
	"github.com/redis/go-redis/v9"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

// Key types used to namespace keys under the configured prefix.
const (
	KeyTypeClient      = "client"
	KeyTypeCode        = "code"
	KeyTypeAccessToken = "access"
	KeyTypePendingFlow = "flow"
	KeyTypeRateLimit   = "ratelimit"
)

// Key builds "<prefix><type>:<id>".
func Key(prefix, keyType string, parts ...string) string {
	return prefix + keyType + ":" + strings.Join(parts, ":")
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.GetRedisPassword(),
		DB:           cfg.GetRedisDB(),
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
