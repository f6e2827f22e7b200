package config

import "time"

type OAuthConfig interface {
	GetAuthCodeTimeout() time.Duration
	GetPendingFlowTimeout() time.Duration
	GetCodeGenerationLength() int
	GetAccessTokenLength() int
	GetDefaultAccessTokenExpiry() time.Duration
	GetStateSigningKey() string
	GetSupportedScopes() []string
	GetDefaultScope() string
}

type OAuth struct {
	settings Settings
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetAuthCodeTimeout() time.Duration {
	return o.settings.getDuration("AUTH_CODE_TIMEOUT", 10*time.Minute)
}

// GetPendingFlowTimeout bounds how long a user may spend at the upstream
// provider between /authorize and /callback.
func (o OAuth) GetPendingFlowTimeout() time.Duration {
	return o.settings.getDuration("PENDING_FLOW_TIMEOUT", 10*time.Minute)
}

func (OAuth) GetCodeGenerationLength() int {
	return 32
}

func (OAuth) GetAccessTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

func (o OAuth) GetDefaultAccessTokenExpiry() time.Duration {
	return o.settings.getDuration("ACCESS_TOKEN_EXPIRY", 1*time.Hour)
}

// GetStateSigningKey is the HMAC key for the state value sent upstream.
// Empty means a random key is generated at startup.
func (o OAuth) GetStateSigningKey() string {
	return o.settings.get("STATE_SIGNING_KEY", "")
}

func (o OAuth) GetSupportedScopes() []string {
	return o.settings.getList("SUPPORTED_SCOPES", []string{"read", "write"})
}

func (o OAuth) GetDefaultScope() string {
	return o.settings.get("DEFAULT_SCOPE", "read write")
}
