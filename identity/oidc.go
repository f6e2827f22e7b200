package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

type oidcProvider struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// newOIDCProvider runs discovery against the issuer.
func newOIDCProvider(ctx context.Context, issuerURL, clientID, clientSecret, redirectURL string, scopes []string) (*oidcProvider, error) {
	p, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return &oidcProvider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     p.Endpoint(),
			RedirectURL:  redirectURL,
			Scopes:       append([]string{oidc.ScopeOpenID}, scopes...),
		},
		verifier: p.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (p *oidcProvider) authCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

func (p *oidcProvider) exchange(ctx context.Context, code string) (*ProviderToken, error) {
	t, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return &ProviderToken{token: t}, nil
}

func (p *oidcProvider) identify(ctx context.Context, pt *ProviderToken) (VerifiedIdentity, error) {
	rawIDToken, ok := pt.token.Extra("id_token").(string)
	if !ok {
		return VerifiedIdentity{}, errors.New("no id_token in token response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return VerifiedIdentity{}, fmt.Errorf("ID token verification failed: %w", err)
	}

	if idToken.Subject == "" {
		return VerifiedIdentity{}, errors.New("ID token has no subject")
	}

	var claims struct {
		PreferredUsername string `json:"preferred_username"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return VerifiedIdentity{}, fmt.Errorf("failed to extract claims: %w", err)
	}
	return VerifiedIdentity{UserID: idToken.Subject, Login: claims.PreferredUsername}, nil
}
