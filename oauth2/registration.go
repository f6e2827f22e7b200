package oauth2

// RegistrationRequest is the RFC 7591 client metadata sent to /register.
type RegistrationRequest struct {
	// RedirectURIs are the only URIs authorization responses may be sent to.
	// Required: Yes, at least one
	RedirectURIs []string `json:"redirect_uris"`

	// TokenEndpointAuthMethod defaults to "none" (public client).
	TokenEndpointAuthMethod TokenEndpointAuthMethod `json:"token_endpoint_auth_method,omitempty"`

	GrantTypes    []string `json:"grant_types,omitempty"`
	ResponseTypes []string `json:"response_types,omitempty"`
	ClientName    string   `json:"client_name,omitempty"`
	ClientURI     string   `json:"client_uri,omitempty"`
	Scope         string   `json:"scope,omitempty"`
}

// RegistrationResponse echoes the registered metadata with the issued credentials.
type RegistrationResponse struct {
	ClientID              string `json:"client_id"`
	ClientSecret          string `json:"client_secret,omitempty"`
	ClientIDIssuedAt      int64  `json:"client_id_issued_at"`
	ClientSecretExpiresAt int64  `json:"client_secret_expires_at,omitempty"`

	RedirectURIs            []string                `json:"redirect_uris"`
	TokenEndpointAuthMethod TokenEndpointAuthMethod `json:"token_endpoint_auth_method"`
	GrantTypes              []string                `json:"grant_types"`
	ResponseTypes           []string                `json:"response_types"`
	ClientName              string                  `json:"client_name,omitempty"`
	Scope                   string                  `json:"scope,omitempty"`
}
