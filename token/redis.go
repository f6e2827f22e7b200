package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-notes-mcp/internal/rediskv"
	"github.com/redis/go-redis/v9"
)

// RedisCodeRepo stores codes with a TTL and consumes them with GETDEL so a
// code can only be taken once across all instances.
type RedisCodeRepo struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ CodeRepo = (*RedisCodeRepo)(nil)

func NewRedisCodeRepo(client redis.UniversalClient, keyPrefix string) *RedisCodeRepo {
	return &RedisCodeRepo{client: client, keyPrefix: keyPrefix}
}

func (r *RedisCodeRepo) Save(ctx context.Context, codeHash string, code *AuthorizationCode, ttl time.Duration) error {
	data, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("failed to marshal authorization code: %w", err)
	}
	return r.client.Set(ctx, rediskv.Key(r.keyPrefix, rediskv.KeyTypeCode, codeHash), data, ttl).Err()
}

func (r *RedisCodeRepo) Consume(ctx context.Context, codeHash string) (*AuthorizationCode, error) {
	data, err := r.client.GetDel(ctx, rediskv.Key(r.keyPrefix, rediskv.KeyTypeCode, codeHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to consume authorization code: %w", err)
	}

	var code AuthorizationCode
	if err := json.Unmarshal(data, &code); err != nil {
		return nil, fmt.Errorf("failed to unmarshal authorization code: %w", err)
	}
	return &code, nil
}

// RedisAccessTokenRepo stores access tokens until they expire.
type RedisAccessTokenRepo struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ AccessTokenRepo = (*RedisAccessTokenRepo)(nil)

func NewRedisAccessTokenRepo(client redis.UniversalClient, keyPrefix string) *RedisAccessTokenRepo {
	return &RedisAccessTokenRepo{client: client, keyPrefix: keyPrefix}
}

func (r *RedisAccessTokenRepo) Save(ctx context.Context, tokenHash string, t *AccessToken, ttl time.Duration) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal access token: %w", err)
	}
	return r.client.Set(ctx, rediskv.Key(r.keyPrefix, rediskv.KeyTypeAccessToken, tokenHash), data, ttl).Err()
}

func (r *RedisAccessTokenRepo) Get(ctx context.Context, tokenHash string) (*AccessToken, error) {
	data, err := r.client.Get(ctx, rediskv.Key(r.keyPrefix, rediskv.KeyTypeAccessToken, tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	var t AccessToken
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal access token: %w", err)
	}
	return &t, nil
}

func (r *RedisAccessTokenRepo) Delete(ctx context.Context, tokenHash string) error {
	return r.client.Del(ctx, rediskv.Key(r.keyPrefix, rediskv.KeyTypeAccessToken, tokenHash)).Err()
}
