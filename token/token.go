package token

import (
	"errors"
	"time"
)

var (
	ErrCodeNotFound  = errors.New("authorization code not found")
	ErrTokenNotFound = errors.New("access token not found")
	ErrTokenExpired  = errors.New("access token expired")
)

// AuthorizationCode is a single-use credential proving a completed
// authorization flow. It is bound to the client, redirect URI, PKCE
// challenge and the verified user.
type AuthorizationCode struct {
	ClientID            string    `json:"clientId"`
	RedirectURI         string    `json:"redirectUri"`
	Scope               string    `json:"scope"`
	Resource            string    `json:"resource,omitempty"`
	CodeChallenge       string    `json:"codeChallenge"`
	CodeChallengeMethod string    `json:"codeChallengeMethod"`
	UserID              string    `json:"userId"`
	IssuedAt            time.Time `json:"issuedAt"`
	ExpiresAt           time.Time `json:"expiresAt"`
}

func (c *AuthorizationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// AccessToken is this server's own bearer credential. The raw value is
// handed to the client once; only its hash is stored.
//
// AccessToken has no relation to the upstream provider's token and there is
// no conversion between the two.
type AccessToken struct {
	UserID    string    `json:"userId"`
	ClientID  string    `json:"clientId"`
	Scope     string    `json:"scope"`
	Resource  string    `json:"resource,omitempty"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (t *AccessToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
