package oauthmodel

import (
	"strings"

	"github.com/jrsteele09/go-notes-mcp/clients"
	"github.com/jrsteele09/go-notes-mcp/oauth2"
)

// AuthorizationRequest holds parameters for the OAuth2 authorization request.
// These are received as query parameters at the /authorize endpoint and kept
// server-side while the user signs in with the upstream identity provider.
type AuthorizationRequest struct {
	// ClientID identifies the application requesting authorization.
	// Required: Yes
	// Validated against: a client registered through /register
	ClientID string `json:"client_id"`

	// ResponseType specifies what the authorization endpoint should return.
	// Required: Yes
	// Example: "code" (only supported value)
	ResponseType oauth2.ResponseType `json:"response_type"`

	// RedirectURI is where the authorization response will be sent.
	// Required: Yes
	// Security: Must exactly match a registered URI to prevent open redirects
	RedirectURI string `json:"redirect_uri"`

	// Scope specifies the permissions being requested.
	// Required: No (defaults to "read write")
	Scope string `json:"scope"`

	// State is an opaque value the client uses to maintain state between request and callback.
	// Required: Recommended (CSRF protection)
	// Echoed back unchanged on the final redirect
	State string `json:"state"`

	// CodeChallenge is the PKCE challenge derived from code_verifier.
	// Required: Yes (OAuth 2.1)
	// Example: BASE64URL-NOPAD(SHA256(code_verifier)), 43 characters
	CodeChallenge string `json:"code_challenge"`

	// CodeChallengeMethod specifies how code_challenge was derived.
	// Required: Yes
	// Example: "S256" (only supported value)
	CodeChallengeMethod oauth2.CodeMethodType `json:"code_challenge_method"`

	// Resource is the RFC 8707 resource indicator the token is intended for.
	// Required: No
	// Example: "https://notes.example.com/mcp"
	Resource string `json:"resource,omitempty"`
}

// ValidateClient checks the two parameters that must be correct before any
// error may be reported by redirect.
func (p *AuthorizationRequest) ValidateClient(client *clients.Client) *Error {
	if strings.TrimSpace(p.RedirectURI) == "" {
		return NewError(ErrCodeInvalidRequest, "redirect_uri is required").Wrap(ErrInvalidRedirectUri)
	}
	if !client.HasRedirectURI(p.RedirectURI) {
		return NewError(ErrCodeInvalidClient, "redirect_uri does not match the registered client").Wrap(ErrInvalidRedirectUri)
	}
	return nil
}

// ValidateParameters checks the remaining parameters. Errors returned here
// are redirectable.
func (p *AuthorizationRequest) ValidateParameters(client *clients.Client, supportedScopes []string) *Error {
	if p.ResponseType != oauth2.CodeResponseType {
		return NewError(ErrCodeUnsupportedResponseType, "response_type must be code").Wrap(ErrInvalidResponseType).Redirect()
	}
	if strings.TrimSpace(p.CodeChallenge) == "" {
		return NewError(ErrCodeInvalidRequest, "code_challenge is required").Wrap(ErrMissingPKCE).Redirect()
	}
	if p.CodeChallengeMethod != oauth2.CodeMethodTypeS256 {
		return NewError(ErrCodeInvalidRequest, "code_challenge_method must be S256").Wrap(ErrInvalidCodeChallengeMethod).Redirect()
	}
	if !codeChallengeValid(p.CodeChallenge) {
		return NewError(ErrCodeInvalidRequest, "code_challenge is malformed").Wrap(ErrInvalidCodeChallenge).Redirect()
	}
	for _, scope := range strings.Fields(p.Scope) {
		if !contains(supportedScopes, scope) || !client.HasScope(scope) {
			return NewError(ErrCodeInvalidScope, "unsupported scope: "+scope).Redirect()
		}
	}
	return nil
}

// codeChallengeValid checks an S256 challenge: 43 unpadded base64url characters.
func codeChallengeValid(challenge string) bool {
	if len(challenge) != 43 {
		return false
	}
	for _, r := range challenge {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
