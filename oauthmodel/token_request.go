package oauthmodel

import "github.com/jrsteele09/go-notes-mcp/oauth2"

// TokenRequest holds parameters for the OAuth2 token request.
// This represents the form-encoded body sent to the /token endpoint.
type TokenRequest struct {
	// GrantType must be "authorization_code".
	GrantType oauth2.GrantType

	// ClientID identifies the OAuth2 client making the request.
	// Required: Yes
	ClientID string

	// ClientSecret is the secret credential for confidential clients.
	// Required: Only for client_secret_post / client_secret_basic clients
	// Security: Never log or expose this value
	ClientSecret string

	// Code is the authorization code received from the authorization endpoint.
	// Usage: Exchanged once, then becomes invalid whether or not the exchange succeeded
	Code string

	// CodeVerifier is the PKCE code verifier that matches the code_challenge.
	// Validation: BASE64URL-NOPAD(SHA256(code_verifier)) must equal the stored code_challenge
	CodeVerifier string

	// RedirectURI must match the authorization request when supplied.
	RedirectURI string
}
