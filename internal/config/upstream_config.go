package config

import (
	"strings"
	"time"
)

const (
	UpstreamProviderGitHub = "github"
	UpstreamProviderOIDC   = "oidc"
)

// UpstreamConfig describes the identity provider users sign in with.
type UpstreamConfig interface {
	GetUpstreamProvider() string
	GetUpstreamClientID() string
	GetUpstreamClientSecret() string
	GetUpstreamIssuerURL() string
	GetUpstreamAuthURL() string
	GetUpstreamTokenURL() string
	GetUpstreamUserInfoURL() string
	GetUpstreamScopes() []string
	GetUpstreamRetryMax() int
	GetUpstreamTimeout() time.Duration
}

type Upstream struct {
	settings Settings
}

var _ UpstreamConfig = Upstream{}

func (u Upstream) GetUpstreamProvider() string {
	return strings.ToLower(u.settings.get("UPSTREAM_PROVIDER", UpstreamProviderGitHub))
}

func (u Upstream) GetUpstreamClientID() string {
	return u.settings.get("UPSTREAM_CLIENT_ID", "")
}

func (u Upstream) GetUpstreamClientSecret() string {
	return u.settings.get("UPSTREAM_CLIENT_SECRET", "")
}

// GetUpstreamIssuerURL is only used by the oidc provider for discovery.
func (u Upstream) GetUpstreamIssuerURL() string {
	return u.settings.get("UPSTREAM_ISSUER_URL", "")
}

func (u Upstream) GetUpstreamAuthURL() string {
	return u.settings.get("UPSTREAM_AUTH_URL", "https://github.com/login/oauth/authorize")
}

func (u Upstream) GetUpstreamTokenURL() string {
	return u.settings.get("UPSTREAM_TOKEN_URL", "https://github.com/login/oauth/access_token")
}

func (u Upstream) GetUpstreamUserInfoURL() string {
	return u.settings.get("UPSTREAM_USERINFO_URL", "https://api.github.com/user")
}

func (u Upstream) GetUpstreamScopes() []string {
	return u.settings.getList("UPSTREAM_SCOPES", []string{"read:user"})
}

func (u Upstream) GetUpstreamRetryMax() int {
	return u.settings.getInt("UPSTREAM_RETRY_MAX", 3)
}

func (u Upstream) GetUpstreamTimeout() time.Duration {
	return u.settings.getDuration("UPSTREAM_TIMEOUT", 10*time.Second)
}
