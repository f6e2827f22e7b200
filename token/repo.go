package token

import (
	"context"
	"time"
)

// CodeRepo stores authorization codes keyed by the hash of the code value.
type CodeRepo interface {
	Save(ctx context.Context, codeHash string, code *AuthorizationCode, ttl time.Duration) error
	// Consume atomically fetches and deletes a code. Concurrent callers for
	// the same code see at most one success.
	Consume(ctx context.Context, codeHash string) (*AuthorizationCode, error)
}

// AccessTokenRepo stores access tokens keyed by the hash of the token value.
type AccessTokenRepo interface {
	Save(ctx context.Context, tokenHash string, token *AccessToken, ttl time.Duration) error
	Get(ctx context.Context, tokenHash string) (*AccessToken, error)
	Delete(ctx context.Context, tokenHash string) error
}
