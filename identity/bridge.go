package identity

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-notes-mcp/internal/config"
	apperrors "github.com/jrsteele09/go-notes-mcp/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Bridge drives the upstream sign-in. Every failure path denies.
type Bridge struct {
	provider   provider
	allowlist  *Allowlist
	httpClient *http.Client
}

type BridgeOption func(*Bridge)

// WithHTTPClient replaces the retrying client used for upstream calls.
func WithHTTPClient(client *http.Client) BridgeOption {
	return func(b *Bridge) {
		b.httpClient = client
	}
}

// NewBridge builds the configured provider. callbackURL is where the
// upstream sends the user back to.
func NewBridge(ctx context.Context, cfg config.UpstreamConfig, callbackURL string, allowlist *Allowlist, options ...BridgeOption) (*Bridge, error) {
	if cfg.GetUpstreamClientID() == "" {
		return nil, fmt.Errorf("[identity.NewBridge] upstream client id is required")
	}

	rc := DefaultRetryConfig()
	rc.RetryMax = cfg.GetUpstreamRetryMax()
	rc.Timeout = cfg.GetUpstreamTimeout()

	b := &Bridge{
		allowlist:  allowlist,
		httpClient: NewHTTPClient(rc),
	}
	for _, opt := range options {
		opt(b)
	}

	switch cfg.GetUpstreamProvider() {
	case config.UpstreamProviderGitHub:
		b.provider = newGitHubProvider(
			cfg.GetUpstreamClientID(),
			cfg.GetUpstreamClientSecret(),
			cfg.GetUpstreamAuthURL(),
			cfg.GetUpstreamTokenURL(),
			cfg.GetUpstreamUserInfoURL(),
			callbackURL,
			cfg.GetUpstreamScopes(),
		)
	case config.UpstreamProviderOIDC:
		p, err := newOIDCProvider(b.clientContext(ctx),
			cfg.GetUpstreamIssuerURL(),
			cfg.GetUpstreamClientID(),
			cfg.GetUpstreamClientSecret(),
			callbackURL,
			cfg.GetUpstreamScopes(),
		)
		if err != nil {
			return nil, fmt.Errorf("[identity.NewBridge] %w", err)
		}
		b.provider = p
	default:
		return nil, fmt.Errorf("[identity.NewBridge] unknown upstream provider %q", cfg.GetUpstreamProvider())
	}

	if b.allowlist.Len() == 0 {
		log.Warn().Msg("upstream allowlist is empty, every sign-in will be denied")
	}
	return b, nil
}

// AuthCodeURL returns the upstream authorize URL carrying state.
func (b *Bridge) AuthCodeURL(state string) string {
	return b.provider.authCodeURL(state)
}

// Verify exchanges the upstream code, looks the user up and checks the
// allowlist. Provider failures are upstream errors, allowlist misses are
// authz errors.
func (b *Bridge) Verify(ctx context.Context, code string) (VerifiedIdentity, error) {
	if code == "" {
		return VerifiedIdentity{}, apperrors.Upstream(nil, "provider returned no code")
	}

	ctx = b.clientContext(ctx)
	pt, err := b.provider.exchange(withoutRetries(ctx), code)
	if err != nil {
		return VerifiedIdentity{}, apperrors.Upstream(err, "identity provider exchange failed")
	}

	id, err := b.provider.identify(ctx, pt)
	if err != nil {
		return VerifiedIdentity{}, apperrors.Upstream(err, "identity lookup failed")
	}

	if !b.allowlist.Allows(id) {
		log.Info().Str("userID", id.UserID).Str("login", id.Login).Msg("sign-in denied by allowlist")
		return VerifiedIdentity{}, apperrors.Authz("user is not allowed")
	}
	return id, nil
}

func (b *Bridge) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
}
