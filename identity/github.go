package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
)

type githubProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
}

func newGitHubProvider(clientID, clientSecret, authURL, tokenURL, userInfoURL, redirectURL string, scopes []string) *githubProvider {
	return &githubProvider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
			RedirectURL: redirectURL,
			Scopes:      scopes,
		},
		userInfoURL: userInfoURL,
	}
}

func (p *githubProvider) authCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

func (p *githubProvider) exchange(ctx context.Context, code string) (*ProviderToken, error) {
	t, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return &ProviderToken{token: t}, nil
}

func (p *githubProvider) identify(ctx context.Context, pt *ProviderToken) (VerifiedIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return VerifiedIdentity{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.oauth.Client(ctx, pt.token).Do(req)
	if err != nil {
		return VerifiedIdentity{}, fmt.Errorf("user lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return VerifiedIdentity{}, fmt.Errorf("user lookup returned status %d", resp.StatusCode)
	}

	var user struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return VerifiedIdentity{}, fmt.Errorf("failed to decode user: %w", err)
	}
	if user.ID == 0 {
		return VerifiedIdentity{}, fmt.Errorf("user lookup returned no id")
	}

	return VerifiedIdentity{UserID: strconv.FormatInt(user.ID, 10), Login: user.Login}, nil
}
