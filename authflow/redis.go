package authflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-notes-mcp/internal/rediskv"
	"github.com/redis/go-redis/v9"
)

// RedisRepo shares pending flows between instances so the callback can land
// on a different instance than the one that served /authorize.
type RedisRepo struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ Repo = (*RedisRepo)(nil)

func NewRedisRepo(client redis.UniversalClient, keyPrefix string) *RedisRepo {
	return &RedisRepo{client: client, keyPrefix: keyPrefix}
}

func (r *RedisRepo) Save(ctx context.Context, flowID string, flow *PendingFlow, ttl time.Duration) error {
	if flowID == "" {
		return errors.New("flow id cannot be empty")
	}
	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("failed to marshal pending flow: %w", err)
	}
	return r.client.Set(ctx, rediskv.Key(r.keyPrefix, rediskv.KeyTypePendingFlow, flowID), data, ttl).Err()
}

func (r *RedisRepo) Take(ctx context.Context, flowID string) (*PendingFlow, error) {
	data, err := r.client.GetDel(ctx, rediskv.Key(r.keyPrefix, rediskv.KeyTypePendingFlow, flowID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrFlowNotFound
		}
		return nil, fmt.Errorf("failed to take pending flow: %w", err)
	}

	var flow PendingFlow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending flow: %w", err)
	}
	return &flow, nil
}
