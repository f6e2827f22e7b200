package authflow

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// StateSealer turns a flow id into the opaque state value sent upstream and
// back. The value is an HS256 JWT so a forged or stale state is rejected
// before any store lookup.
type StateSealer struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

func NewStateSealer(key []byte, issuer string, ttl time.Duration) (*StateSealer, error) {
	if len(key) < 32 {
		return nil, fmt.Errorf("state signing key must be at least 32 bytes, got %d", len(key))
	}
	return &StateSealer{key: key, issuer: issuer, ttl: ttl}, nil
}

// NewFlowID returns a fresh random flow id.
func NewFlowID() string {
	return uuid.NewString()
}

func (s *StateSealer) Seal(flowID string) (string, error) {
	now := NowTimeFunc()
	claims := jwtlib.RegisteredClaims{
		ID:        flowID,
		Issuer:    s.issuer,
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(s.ttl)),
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return signed, nil
}

// Open verifies the state and returns the flow id it carries.
func (s *StateSealer) Open(state string) (string, error) {
	if state == "" {
		return "", ErrInvalidState
	}

	var claims jwtlib.RegisteredClaims
	_, err := jwtlib.ParseWithClaims(state, &claims, func(*jwtlib.Token) (interface{}, error) {
		return s.key, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(s.issuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(NowTimeFunc),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if claims.ID == "" {
		return "", ErrInvalidState
	}
	return claims.ID, nil
}
