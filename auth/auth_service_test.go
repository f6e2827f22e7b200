package auth_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-notes-mcp/auth"
	"github.com/jrsteele09/go-notes-mcp/authflow"
	"github.com/jrsteele09/go-notes-mcp/clients"
	"github.com/jrsteele09/go-notes-mcp/identity"
	"github.com/jrsteele09/go-notes-mcp/internal/config"
	apperrors "github.com/jrsteele09/go-notes-mcp/internal/errors"
	"github.com/jrsteele09/go-notes-mcp/internal/utils"
	"github.com/jrsteele09/go-notes-mcp/oauth2"
	"github.com/jrsteele09/go-notes-mcp/oauthmodel"
	"github.com/jrsteele09/go-notes-mcp/token"
	"github.com/stretchr/testify/require"
)

const (
	testRedirectURI = "http://localhost:3000/callback"
	testVerifier    = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
)

type fakeVerifier struct {
	mu       sync.Mutex
	identity identity.VerifiedIdentity
	err      error
}

func (f *fakeVerifier) AuthCodeURL(state string) string {
	return "https://upstream.example.com/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeVerifier) Verify(_ context.Context, code string) (identity.VerifiedIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return identity.VerifiedIdentity{}, f.err
	}
	return f.identity, nil
}

func (f *fakeVerifier) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fixture struct {
	service  *auth.AuthorizationService
	verifier *fakeVerifier
	clients  *clients.InMemoryRepo
	now      time.Time
}

func (f *fixture) clock() time.Time {
	return f.now
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		verifier: &fakeVerifier{identity: identity.VerifiedIdentity{UserID: "42", Login: "octocat"}},
		clients:  clients.NewInMemoryRepo(),
		now:      time.Now(),
	}

	tokens, err := token.NewManager(token.NewInMemoryCodeRepo(), token.NewInMemoryAccessTokenRepo(),
		token.WithNowFunc(f.clock))
	require.NoError(t, err)

	sealer, err := authflow.NewStateSealer([]byte("0123456789abcdef0123456789abcdef"), "http://localhost:8080", 10*time.Minute)
	require.NoError(t, err)

	f.service, err = auth.NewAuthorizationService(
		auth.Repos{Clients: f.clients, Flows: authflow.NewInMemoryRepo()},
		tokens, f.verifier, sealer, config.NewFromSettings(nil),
		auth.WithNowTime(f.clock),
	)
	require.NoError(t, err)
	return f
}

func (f *fixture) register(t *testing.T, method oauth2.TokenEndpointAuthMethod) *oauth2.RegistrationResponse {
	t.Helper()
	resp, err := f.service.Register(context.Background(), oauth2.RegistrationRequest{
		RedirectURIs:            []string{testRedirectURI},
		TokenEndpointAuthMethod: method,
		ClientName:              "test client",
	})
	require.NoError(t, err)
	return resp
}

func authorizeRequest(clientID string) *oauthmodel.AuthorizationRequest {
	return &oauthmodel.AuthorizationRequest{
		ClientID:            clientID,
		ResponseType:        oauth2.CodeResponseType,
		RedirectURI:         testRedirectURI,
		State:               "client-state",
		CodeChallenge:       utils.S256Challenge(testVerifier),
		CodeChallengeMethod: oauth2.CodeMethodTypeS256,
	}
}

// authorizeAndCallback runs the flow up to the point where the client holds
// an authorization code.
func (f *fixture) authorizeAndCallback(t *testing.T, clientID string) string {
	t.Helper()
	ctx := context.Background()

	upstreamURL, err := f.service.Authorize(ctx, authorizeRequest(clientID))
	require.NoError(t, err)

	redirect, err := f.service.Callback(ctx, upstreamState(t, upstreamURL), "upstream-code", "")
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	require.Equal(t, "client-state", u.Query().Get("state"))
	require.NotEmpty(t, u.Query().Get("code"))
	return u.Query().Get("code")
}

func upstreamState(t *testing.T, upstreamURL string) string {
	t.Helper()
	u, err := url.Parse(upstreamURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func tokenRequest(clientID, code string) oauthmodel.TokenRequest {
	return oauthmodel.TokenRequest{
		GrantType:    oauth2.AuthorizationCodeGrant,
		ClientID:     clientID,
		Code:         code,
		CodeVerifier: testVerifier,
		RedirectURI:  testRedirectURI,
	}
}

func requireOAuthError(t *testing.T, err error, code string) *oauthmodel.Error {
	t.Helper()
	require.Error(t, err)
	var oerr *oauthmodel.Error
	require.True(t, errors.As(err, &oerr), "expected oauth error, got %v", err)
	require.Equal(t, code, oerr.Code)
	return oerr
}

func TestNewAuthorizationServiceRequiresDependencies(t *testing.T) {
	_, err := auth.NewAuthorizationService(auth.Repos{}, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("public client", func(t *testing.T) {
		resp := f.register(t, "")
		require.NotEmpty(t, resp.ClientID)
		require.Empty(t, resp.ClientSecret)
		require.Equal(t, oauth2.AuthMethodNone, resp.TokenEndpointAuthMethod)
		require.Equal(t, []string{"authorization_code"}, resp.GrantTypes)
		require.Equal(t, "read write", resp.Scope)
	})

	t.Run("confidential client gets a hashed secret", func(t *testing.T) {
		resp := f.register(t, oauth2.AuthMethodClientSecretPost)
		require.NotEmpty(t, resp.ClientSecret)

		stored, err := f.clients.Get(ctx, resp.ClientID)
		require.NoError(t, err)
		require.NotEqual(t, resp.ClientSecret, stored.SecretHash)
		require.True(t, stored.VerifySecret(resp.ClientSecret))
	})

	t.Run("invalid metadata", func(t *testing.T) {
		tests := []struct {
			name string
			req  oauth2.RegistrationRequest
			code string
		}{
			{"no redirect uris", oauth2.RegistrationRequest{}, oauthmodel.ErrCodeInvalidRequest},
			{"relative redirect uri", oauth2.RegistrationRequest{RedirectURIs: []string{"/callback"}}, oauthmodel.ErrCodeInvalidRedirectURI},
			{"fragment", oauth2.RegistrationRequest{RedirectURIs: []string{"https://app.example.com/cb#frag"}}, oauthmodel.ErrCodeInvalidRedirectURI},
			{"custom scheme", oauth2.RegistrationRequest{RedirectURIs: []string{"ftp://app.example.com/cb"}}, oauthmodel.ErrCodeInvalidRedirectURI},
			{"unknown auth method", oauth2.RegistrationRequest{RedirectURIs: []string{testRedirectURI}, TokenEndpointAuthMethod: "private_key_jwt"}, oauthmodel.ErrCodeInvalidClientMetadata},
			{"implicit grant", oauth2.RegistrationRequest{RedirectURIs: []string{testRedirectURI}, GrantTypes: []string{"implicit"}}, oauthmodel.ErrCodeInvalidClientMetadata},
			{"unknown scope", oauth2.RegistrationRequest{RedirectURIs: []string{testRedirectURI}, Scope: "admin"}, oauthmodel.ErrCodeInvalidScope},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.service.Register(ctx, tt.req)
				requireOAuthError(t, err, tt.code)
			})
		}
	})
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	client := f.register(t, "")

	t.Run("redirects upstream with sealed state", func(t *testing.T) {
		upstreamURL, err := f.service.Authorize(ctx, authorizeRequest(client.ClientID))
		require.NoError(t, err)
		require.Contains(t, upstreamURL, "https://upstream.example.com/authorize")
		require.NotEqual(t, "client-state", upstreamState(t, upstreamURL))
	})

	t.Run("client errors are never redirected", func(t *testing.T) {
		req := authorizeRequest("unknown")
		_, err := f.service.Authorize(ctx, req)
		oerr := requireOAuthError(t, err, oauthmodel.ErrCodeInvalidClient)
		require.False(t, oerr.Redirectable)

		req = authorizeRequest(client.ClientID)
		req.RedirectURI = "http://evil.example.com/callback"
		_, err = f.service.Authorize(ctx, req)
		oerr = requireOAuthError(t, err, oauthmodel.ErrCodeInvalidClient)
		require.False(t, oerr.Redirectable)
	})

	t.Run("parameter errors are redirected", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*oauthmodel.AuthorizationRequest)
			code   string
		}{
			{"token response type", func(r *oauthmodel.AuthorizationRequest) { r.ResponseType = "token" }, oauthmodel.ErrCodeUnsupportedResponseType},
			{"missing challenge", func(r *oauthmodel.AuthorizationRequest) { r.CodeChallenge = "" }, oauthmodel.ErrCodeInvalidRequest},
			{"plain method", func(r *oauthmodel.AuthorizationRequest) { r.CodeChallengeMethod = oauth2.CodeMethodTypePlain }, oauthmodel.ErrCodeInvalidRequest},
			{"short challenge", func(r *oauthmodel.AuthorizationRequest) { r.CodeChallenge = "abc" }, oauthmodel.ErrCodeInvalidRequest},
			{"unknown scope", func(r *oauthmodel.AuthorizationRequest) { r.Scope = "read admin" }, oauthmodel.ErrCodeInvalidScope},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := authorizeRequest(client.ClientID)
				tt.mutate(req)
				_, err := f.service.Authorize(ctx, req)
				oerr := requireOAuthError(t, err, tt.code)
				require.True(t, oerr.Redirectable)
			})
		}
	})
}

func TestCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("state is single use", func(t *testing.T) {
		f := newFixture(t)
		client := f.register(t, "")

		upstreamURL, err := f.service.Authorize(ctx, authorizeRequest(client.ClientID))
		require.NoError(t, err)
		state := upstreamState(t, upstreamURL)

		_, err = f.service.Callback(ctx, state, "upstream-code", "")
		require.NoError(t, err)

		_, err = f.service.Callback(ctx, state, "upstream-code", "")
		requireOAuthError(t, err, oauthmodel.ErrCodeInvalidRequest)
	})

	t.Run("forged state", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Callback(ctx, "not-a-jwt", "upstream-code", "")
		requireOAuthError(t, err, oauthmodel.ErrCodeInvalidRequest)
	})

	denied := []struct {
		name          string
		verifyErr     error
		providerError string
		description   string
	}{
		{"not on allowlist", apperrors.Authz("user is not allowed"), "", "user is not allowed"},
		{"upstream failure", apperrors.Upstream(errors.New("timeout"), "identity lookup failed"), "", "identity provider error"},
		{"provider error", nil, "access_denied", "sign-in was not completed"},
	}
	for _, tt := range denied {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			client := f.register(t, "")
			f.verifier.fail(tt.verifyErr)

			upstreamURL, err := f.service.Authorize(ctx, authorizeRequest(client.ClientID))
			require.NoError(t, err)

			redirect, err := f.service.Callback(ctx, upstreamState(t, upstreamURL), "upstream-code", tt.providerError)
			require.NoError(t, err)

			u, err := url.Parse(redirect)
			require.NoError(t, err)
			require.Equal(t, "access_denied", u.Query().Get("error"))
			require.Equal(t, tt.description, u.Query().Get("error_description"))
			require.Equal(t, "client-state", u.Query().Get("state"))
			require.Empty(t, u.Query().Get("code"))
		})
	}
}

func TestToken(t *testing.T) {
	ctx := context.Background()

	t.Run("code exchanges exactly once", func(t *testing.T) {
		f := newFixture(t)
		client := f.register(t, "")
		code := f.authorizeAndCallback(t, client.ClientID)

		resp, err := f.service.Token(ctx, tokenRequest(client.ClientID, code))
		require.NoError(t, err)
		require.Equal(t, "Bearer", resp.TokenType)
		require.Equal(t, "read write", resp.Scope)
		require.Equal(t, 3600, resp.ExpiresIn)

		at, err := f.service.ValidateAccessToken(ctx, resp.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "42", at.UserID)
		require.Equal(t, client.ClientID, at.ClientID)

		_, err = f.service.Token(ctx, tokenRequest(client.ClientID, code))
		requireOAuthError(t, err, oauthmodel.ErrCodeInvalidGrant)
	})

	t.Run("failed exchange still consumes the code", func(t *testing.T) {
		f := newFixture(t)
		client := f.register(t, "")
		code := f.authorizeAndCallback(t, client.ClientID)

		req := tokenRequest(client.ClientID, code)
		req.CodeVerifier = "wrong-verifier-wrong-verifier-wrong-verifier"
		_, err := f.service.Token(ctx, req)
		requireOAuthError(t, err, oauthmodel.ErrCodeInvalidGrant)

		_, err = f.service.Token(ctx, tokenRequest(client.ClientID, code))
		requireOAuthError(t, err, oauthmodel.ErrCodeInvalidGrant)
	})

	t.Run("validation failures", func(t *testing.T) {
		f := newFixture(t)
		client := f.register(t, "")
		other := f.register(t, "")

		tests := []struct {
			name   string
			mutate func(*oauthmodel.TokenRequest)
			code   string
		}{
			{"other client", func(r *oauthmodel.TokenRequest) { r.ClientID = other.ClientID }, oauthmodel.ErrCodeInvalidGrant},
			{"redirect mismatch", func(r *oauthmodel.TokenRequest) { r.RedirectURI = "http://localhost:3000/other" }, oauthmodel.ErrCodeInvalidGrant},
			{"missing verifier", func(r *oauthmodel.TokenRequest) { r.CodeVerifier = "" }, oauthmodel.ErrCodeInvalidGrant},
			{"unknown client", func(r *oauthmodel.TokenRequest) { r.ClientID = "nobody" }, oauthmodel.ErrCodeInvalidGrant},
			{"missing client", func(r *oauthmodel.TokenRequest) { r.ClientID = "" }, oauthmodel.ErrCodeInvalidGrant},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				code := f.authorizeAndCallback(t, client.ClientID)
				req := tokenRequest(client.ClientID, code)
				tt.mutate(&req)
				_, err := f.service.Token(ctx, req)
				requireOAuthError(t, err, tt.code)
			})
		}
	})

	t.Run("expired code", func(t *testing.T) {
		f := newFixture(t)
		client := f.register(t, "")
		code := f.authorizeAndCallback(t, client.ClientID)

		f.now = f.now.Add(11 * time.Minute)
		_, err := f.service.Token(ctx, tokenRequest(client.ClientID, code))
		requireOAuthError(t, err, oauthmodel.ErrCodeInvalidGrant)
	})

	t.Run("unsupported grant", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Token(ctx, oauthmodel.TokenRequest{GrantType: "client_credentials", Code: "x"})
		requireOAuthError(t, err, oauthmodel.ErrCodeUnsupportedGrantType)
	})

	t.Run("confidential client must authenticate", func(t *testing.T) {
		f := newFixture(t)
		client := f.register(t, oauth2.AuthMethodClientSecretPost)

		code := f.authorizeAndCallback(t, client.ClientID)
		_, err := f.service.Token(ctx, tokenRequest(client.ClientID, code))
		requireOAuthError(t, err, oauthmodel.ErrCodeInvalidClient)

		code = f.authorizeAndCallback(t, client.ClientID)
		req := tokenRequest(client.ClientID, code)
		req.ClientSecret = client.ClientSecret
		_, err = f.service.Token(ctx, req)
		require.NoError(t, err)
	})
}

func TestValidateAccessTokenAndRevoke(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	client := f.register(t, "")
	code := f.authorizeAndCallback(t, client.ClientID)

	resp, err := f.service.Token(ctx, tokenRequest(client.ClientID, code))
	require.NoError(t, err)

	_, err = f.service.ValidateAccessToken(ctx, "garbage")
	require.Equal(t, apperrors.KindAuth, apperrors.KindOf(err))

	require.NoError(t, f.service.Revoke(ctx, resp.AccessToken, "another-client"))
	_, err = f.service.ValidateAccessToken(ctx, resp.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.service.Revoke(ctx, resp.AccessToken, client.ClientID))
	_, err = f.service.ValidateAccessToken(ctx, resp.AccessToken)
	require.Equal(t, apperrors.KindAuth, apperrors.KindOf(err))

	require.NoError(t, f.service.Revoke(ctx, "unknown", ""))

	t.Run("expired token", func(t *testing.T) {
		code := f.authorizeAndCallback(t, client.ClientID)
		resp, err := f.service.Token(ctx, tokenRequest(client.ClientID, code))
		require.NoError(t, err)

		f.now = f.now.Add(2 * time.Hour)
		_, err = f.service.ValidateAccessToken(ctx, resp.AccessToken)
		require.Equal(t, apperrors.KindAuth, apperrors.KindOf(err))
	})
}

func TestMetadata(t *testing.T) {
	f := newFixture(t)

	md := f.service.Metadata("https://notes.example.com")
	require.Equal(t, "https://notes.example.com", md.Issuer)
	require.Equal(t, "https://notes.example.com/token", md.TokenEndpoint)
	require.Equal(t, []string{"S256"}, md.CodeChallengeMethodsSupported)

	rm := f.service.ResourceMetadata("https://notes.example.com", "Notes MCP")
	require.Equal(t, "https://notes.example.com/mcp", rm.Resource)
	require.Equal(t, []string{"https://notes.example.com"}, rm.AuthorizationServers)
}
