package clients

import (
	"errors"
	"strings"
	"time"

	"github.com/jrsteele09/go-notes-mcp/oauth2"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound     = errors.New("client not found")
	ErrClientExists = errors.New("client already exists")
	ErrInvalidScope = errors.New("invalid scope")
)

// Client is a caller registered through dynamic client registration.
// Clients are created once and never mutated.
type Client struct {
	ID            string                         `json:"id"`
	Name          string                         `json:"name,omitempty"`
	AuthMethod    oauth2.TokenEndpointAuthMethod `json:"authMethod"`
	SecretHash    string                         `json:"secretHash,omitempty"` // bcrypt, confidential clients only
	RedirectURIs  []string                       `json:"redirectURIs"`
	GrantTypes    []string                       `json:"grantTypes"`
	ResponseTypes []string                       `json:"responseTypes"`
	Scopes        []string                       `json:"scopes"` // Allowed scopes for this client
	CreatedAt     time.Time                      `json:"createdAt"`
}

// IsPublic returns true if the client is a public client
func (c *Client) IsPublic() bool {
	return !c.AuthMethod.IsConfidential()
}

// HasRedirectURI reports an exact match against a registered redirect URI.
func (c *Client) HasRedirectURI(uri string) bool {
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}

// HasScope checks if the client has permission for a specific scope
func (c *Client) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ValidateScopes checks if all requested scopes are allowed for this client
func (c *Client) ValidateScopes(requestedScopes string) error {
	for _, scope := range strings.Fields(requestedScopes) {
		if !c.HasScope(scope) {
			return ErrInvalidScope
		}
	}
	return nil
}

// VerifySecret checks a presented secret. Public clients never verify.
func (c *Client) VerifySecret(secret string) bool {
	if c.IsPublic() || c.SecretHash == "" || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.SecretHash), []byte(secret)) == nil
}

// HashSecret returns the bcrypt hash stored for a confidential client.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (c *Client) clone() *Client {
	cp := *c
	cp.RedirectURIs = append([]string(nil), c.RedirectURIs...)
	cp.GrantTypes = append([]string(nil), c.GrantTypes...)
	cp.ResponseTypes = append([]string(nil), c.ResponseTypes...)
	cp.Scopes = append([]string(nil), c.Scopes...)
	return &cp
}
