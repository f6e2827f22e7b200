package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-notes-mcp/internal/rediskv"
	"github.com/redis/go-redis/v9"
)

var _ Repo = (*RedisRepo)(nil)

// RedisRepo stores clients as JSON so every instance sees registrations.
type RedisRepo struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedisRepo(client redis.UniversalClient, keyPrefix string) *RedisRepo {
	return &RedisRepo{client: client, keyPrefix: keyPrefix}
}

func (r *RedisRepo) Create(ctx context.Context, c *Client) error {
	if c == nil || c.ID == "" {
		return errors.New("client id cannot be empty")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal client: %w", err)
	}

	created, err := r.client.SetNX(ctx, rediskv.Key(r.keyPrefix, rediskv.KeyTypeClient, c.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store client: %w", err)
	}
	if !created {
		return ErrClientExists
	}
	return nil
}

func (r *RedisRepo) Get(ctx context.Context, clientID string) (*Client, error) {
	data, err := r.client.Get(ctx, rediskv.Key(r.keyPrefix, rediskv.KeyTypeClient, clientID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	var c Client
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client: %w", err)
	}
	return &c, nil
}
