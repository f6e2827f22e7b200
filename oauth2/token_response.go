package oauth2

// TokenResponse represents the response from an OAuth2 token request.
// This is the standard OAuth2 token endpoint response format as defined in RFC 6749.
type TokenResponse struct {
	// AccessToken is the opaque bearer token used to access /mcp.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	// Lifespan: Short-lived (1 hour by default)
	AccessToken string `json:"access_token"`

	// TokenType indicates how to use the access token (always "Bearer").
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	ExpiresIn int `json:"expires_in,omitempty"`

	// Scope indicates the access token's granted permissions.
	// Example: "read write"
	Scope string `json:"scope,omitempty"`
}

// ErrorResponse is the RFC 6749 section 5.2 error body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
