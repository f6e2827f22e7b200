package token

import (
	"context"
	"errors"
	"time"

	"github.com/jrsteele09/go-notes-mcp/internal/utils"
	pkgerrors "github.com/pkg/errors"
)

var ErrCodeExpired = errors.New("authorization code expired")

const (
	defaultCodeTTL           = 10 * time.Minute
	defaultAccessTokenExpiry = 1 * time.Hour
	defaultSecretLength      = 32 // 32 bytes = 256 bits
)

// Manager issues and validates authorization codes and access tokens.
// Raw values are random and only their hashes are persisted.
type Manager struct {
	codes             CodeRepo
	tokens            AccessTokenRepo
	codeTTL           time.Duration
	accessTokenExpiry time.Duration
	secretLength      int
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithCodeTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.codeTTL = ttl
	}
}

func WithAccessTokenExpiry(expiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = expiry
	}
}

func WithSecretLength(length int) ManagerOption {
	return func(m *Manager) {
		m.secretLength = length
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func NewManager(codes CodeRepo, tokens AccessTokenRepo, options ...ManagerOption) (*Manager, error) {
	if codes == nil {
		return nil, errors.New("[token.NewManager] code repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[token.NewManager] access token repo is required")
	}

	m := &Manager{
		codes:             codes,
		tokens:            tokens,
		codeTTL:           defaultCodeTTL,
		accessTokenExpiry: defaultAccessTokenExpiry,
		secretLength:      defaultSecretLength,
		nowFunc:           time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

func (m *Manager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}

// IssueCode stores the grant under a fresh code and returns the raw code.
func (m *Manager) IssueCode(ctx context.Context, grant AuthorizationCode) (string, error) {
	raw, err := utils.RandomString(m.secretLength)
	if err != nil {
		return "", pkgerrors.Wrap(err, "[Manager.IssueCode] random")
	}

	now := m.nowFunc()
	grant.IssuedAt = now
	grant.ExpiresAt = now.Add(m.codeTTL)
	if err := m.codes.Save(ctx, utils.HashSecret(raw), &grant, m.codeTTL); err != nil {
		return "", pkgerrors.Wrap(err, "[Manager.IssueCode] save")
	}
	return raw, nil
}

// ConsumeCode takes the code out of the store. After this call the code is
// gone, whatever the caller decides about its validity.
func (m *Manager) ConsumeCode(ctx context.Context, raw string) (*AuthorizationCode, error) {
	if raw == "" {
		return nil, ErrCodeNotFound
	}
	code, err := m.codes.Consume(ctx, utils.HashSecret(raw))
	if err != nil {
		return nil, err
	}
	if code.Expired(m.nowFunc()) {
		return nil, ErrCodeExpired
	}
	return code, nil
}

// IssueAccessToken mints a token for the user and client bound to a consumed code.
func (m *Manager) IssueAccessToken(ctx context.Context, code *AuthorizationCode) (string, *AccessToken, error) {
	raw, err := utils.RandomString(m.secretLength)
	if err != nil {
		return "", nil, pkgerrors.Wrap(err, "[Manager.IssueAccessToken] random")
	}

	now := m.nowFunc()
	t := &AccessToken{
		UserID:    code.UserID,
		ClientID:  code.ClientID,
		Scope:     code.Scope,
		Resource:  code.Resource,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.accessTokenExpiry),
	}
	if err := m.tokens.Save(ctx, utils.HashSecret(raw), t, m.accessTokenExpiry); err != nil {
		return "", nil, pkgerrors.Wrap(err, "[Manager.IssueAccessToken] save")
	}
	return raw, t, nil
}

// Validate resolves a raw bearer value to its access token.
func (m *Manager) Validate(ctx context.Context, raw string) (*AccessToken, error) {
	if raw == "" {
		return nil, ErrTokenNotFound
	}
	t, err := m.tokens.Get(ctx, utils.HashSecret(raw))
	if err != nil {
		return nil, err
	}
	if t.Expired(m.nowFunc()) {
		return nil, ErrTokenExpired
	}
	return t, nil
}

// Revoke deletes a token. Unknown tokens are not an error (RFC 7009).
func (m *Manager) Revoke(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	return m.tokens.Delete(ctx, utils.HashSecret(raw))
}
