package oauth2

// ResponseType represents the OAuth 2.0 response type.
// Determines what is returned from the authorization endpoint.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow.
	// OAuth 2.1 removes the implicit flow, so this is the only supported value.
	// Example: /authorize?response_type=code&client_id=...
	CodeResponseType ResponseType = "code"
)

// CodeMethodType represents the PKCE (Proof Key for Code Exchange) challenge method.
type CodeMethodType string

const (
	// CodeMethodTypeS256 indicates SHA-256 hashing is used for the code challenge.
	// Client sends: code_challenge = BASE64URL-NOPAD(SHA256(code_verifier))
	// Server validates: SHA256(provided code_verifier) == stored code_challenge
	CodeMethodTypeS256 CodeMethodType = "S256"

	// CodeMethodTypePlain sends the verifier itself as the challenge.
	// Not accepted by this server; listed so it can be rejected by name.
	CodeMethodTypePlain CodeMethodType = "plain"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code plus PKCE verifier for an access token.
	// Token request includes: code, client_id, code_verifier, redirect_uri
	// Returns: access_token
	AuthorizationCodeGrant GrantType = "authorization_code"
)

// TokenEndpointAuthMethod is how a client authenticates at the token endpoint (RFC 7591).
type TokenEndpointAuthMethod string

const (
	// AuthMethodNone is used by public clients; PKCE is the only proof of possession.
	AuthMethodNone TokenEndpointAuthMethod = "none"

	// AuthMethodClientSecretPost sends client_id and client_secret in the form body.
	AuthMethodClientSecretPost TokenEndpointAuthMethod = "client_secret_post"

	// AuthMethodClientSecretBasic sends the credentials in an HTTP Basic header.
	AuthMethodClientSecretBasic TokenEndpointAuthMethod = "client_secret_basic"
)

// IsConfidential reports whether the method requires a client secret.
func (m TokenEndpointAuthMethod) IsConfidential() bool {
	return m == AuthMethodClientSecretPost || m == AuthMethodClientSecretBasic
}

// Valid reports whether the method is one this server supports.
func (m TokenEndpointAuthMethod) Valid() bool {
	return m == AuthMethodNone || m.IsConfidential()
}

// BearerTokenType is the token_type of every access token issued here.
const BearerTokenType = "Bearer"
