package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-notes-mcp/identity"
	"github.com/jrsteele09/go-notes-mcp/internal/config"
	apperrors "github.com/jrsteele09/go-notes-mcp/internal/errors"
	"github.com/stretchr/testify/require"
)

// fakeGitHub serves the token and user endpoints of a GitHub style provider.
type fakeGitHub struct {
	server        *httptest.Server
	userID        int64
	login         string
	userFailures  atomic.Int32
	userCalls     atomic.Int32
	tokenFailures atomic.Int32
	tokenCalls    atomic.Int32
}

func newFakeGitHub(t *testing.T, userID int64, login string) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{userID: userID, login: login}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		if f.tokenFailures.Load() > 0 {
			f.tokenFailures.Add(-1)
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_upstream","token_type":"bearer","scope":"read:user"}`))
	})
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		f.userCalls.Add(1)
		if f.userFailures.Load() > 0 {
			f.userFailures.Add(-1)
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if r.Header.Get("Authorization") != "Bearer gho_upstream" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": f.userID, "login": f.login})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGitHub) config() config.Config {
	return config.NewFromSettings(config.Settings{
		"UPSTREAM_PROVIDER":      "github",
		"UPSTREAM_CLIENT_ID":     "upstream-client",
		"UPSTREAM_CLIENT_SECRET": "upstream-secret",
		"UPSTREAM_AUTH_URL":      f.server.URL + "/authorize",
		"UPSTREAM_TOKEN_URL":     f.server.URL + "/token",
		"UPSTREAM_USERINFO_URL":  f.server.URL + "/user",
	})
}

func fastRetries(retryMax int) identity.BridgeOption {
	return identity.WithHTTPClient(identity.NewHTTPClient(identity.RetryConfig{
		RetryMax: retryMax,
		WaitMin:  time.Millisecond,
		WaitMax:  5 * time.Millisecond,
		Timeout:  5 * time.Second,
	}))
}

func TestAllowlist(t *testing.T) {
	a := identity.NewAllowlist([]string{" 42 ", "auth0|AbC", ""})
	require.Equal(t, 2, a.Len())

	require.True(t, a.Allows(identity.VerifiedIdentity{UserID: "42"}))
	require.True(t, a.Allows(identity.VerifiedIdentity{UserID: "auth0|AbC"}))
	require.False(t, a.Allows(identity.VerifiedIdentity{UserID: "auth0|abc"}), "subjects are case sensitive")
	require.False(t, a.Allows(identity.VerifiedIdentity{UserID: "7", Login: "42"}), "logins never match")
	require.False(t, a.Allows(identity.VerifiedIdentity{Login: "42"}))

	empty := identity.NewAllowlist(nil)
	require.False(t, empty.Allows(identity.VerifiedIdentity{UserID: "42"}))
}

func TestBridgeVerify(t *testing.T) {
	ctx := context.Background()
	upstream := newFakeGitHub(t, 42, "octocat")

	bridge, err := identity.NewBridge(ctx, upstream.config(), "http://localhost:8080/callback",
		identity.NewAllowlist([]string{"42"}), fastRetries(2))
	require.NoError(t, err)

	t.Run("auth code url carries state", func(t *testing.T) {
		u, err := url.Parse(bridge.AuthCodeURL("sealed-state"))
		require.NoError(t, err)
		require.Equal(t, "sealed-state", u.Query().Get("state"))
		require.Equal(t, "upstream-client", u.Query().Get("client_id"))
		require.Equal(t, "http://localhost:8080/callback", u.Query().Get("redirect_uri"))
	})

	t.Run("allowlisted user", func(t *testing.T) {
		id, err := bridge.Verify(ctx, "good-code")
		require.NoError(t, err)
		require.Equal(t, identity.VerifiedIdentity{UserID: "42", Login: "octocat"}, id)
	})

	t.Run("transient user lookup failures are retried", func(t *testing.T) {
		upstream.userCalls.Store(0)
		upstream.userFailures.Store(2)

		id, err := bridge.Verify(ctx, "good-code")
		require.NoError(t, err)
		require.Equal(t, "42", id.UserID)
		require.Equal(t, int32(3), upstream.userCalls.Load())
	})

	t.Run("retries are bounded", func(t *testing.T) {
		upstream.userCalls.Store(0)
		upstream.userFailures.Store(10)
		defer upstream.userFailures.Store(0)

		_, err := bridge.Verify(ctx, "good-code")
		require.Error(t, err)
		require.Equal(t, apperrors.KindUpstream, apperrors.KindOf(err))
		require.Equal(t, int32(3), upstream.userCalls.Load())
	})

	t.Run("code exchange is never retried", func(t *testing.T) {
		upstream.tokenCalls.Store(0)
		upstream.tokenFailures.Store(1)
		defer upstream.tokenFailures.Store(0)

		_, err := bridge.Verify(ctx, "good-code")
		require.Error(t, err)
		require.Equal(t, apperrors.KindUpstream, apperrors.KindOf(err))
		require.Equal(t, int32(1), upstream.tokenCalls.Load())
	})

	t.Run("rejected code", func(t *testing.T) {
		_, err := bridge.Verify(ctx, "bad-code")
		require.Equal(t, apperrors.KindUpstream, apperrors.KindOf(err))
	})

	t.Run("missing code", func(t *testing.T) {
		_, err := bridge.Verify(ctx, "")
		require.Equal(t, apperrors.KindUpstream, apperrors.KindOf(err))
	})
}

func TestBridgeDeniesUsersNotOnAllowlist(t *testing.T) {
	ctx := context.Background()
	upstream := newFakeGitHub(t, 99, "mallory")

	for name, allowlist := range map[string]*identity.Allowlist{
		"other user": identity.NewAllowlist([]string{"42"}),
		"login only": identity.NewAllowlist([]string{"mallory"}),
		"empty":      identity.NewAllowlist(nil),
	} {
		t.Run(name, func(t *testing.T) {
			bridge, err := identity.NewBridge(ctx, upstream.config(), "http://localhost:8080/callback", allowlist, fastRetries(0))
			require.NoError(t, err)

			_, err = bridge.Verify(ctx, "good-code")
			require.Error(t, err)
			require.Equal(t, apperrors.KindAuthz, apperrors.KindOf(err))
		})
	}
}

func TestBridgeIgnoresLoginMatchingAnAllowedID(t *testing.T) {
	ctx := context.Background()
	upstream := newFakeGitHub(t, 999, "42")

	bridge, err := identity.NewBridge(ctx, upstream.config(), "http://localhost:8080/callback",
		identity.NewAllowlist([]string{"42"}), fastRetries(0))
	require.NoError(t, err)

	id, err := bridge.Verify(ctx, "good-code")
	require.Error(t, err)
	require.Equal(t, apperrors.KindAuthz, apperrors.KindOf(err))
	require.Empty(t, id.UserID)
}

func TestNewBridgeErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing client id", func(t *testing.T) {
		_, err := identity.NewBridge(ctx, config.NewFromSettings(nil), "http://localhost/callback", identity.NewAllowlist(nil))
		require.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := config.NewFromSettings(config.Settings{"UPSTREAM_PROVIDER": "myspace", "UPSTREAM_CLIENT_ID": "x"})
		_, err := identity.NewBridge(ctx, cfg, "http://localhost/callback", identity.NewAllowlist(nil))
		require.Error(t, err)
	})

	t.Run("oidc discovery failure", func(t *testing.T) {
		issuer := httptest.NewServer(http.NotFoundHandler())
		defer issuer.Close()

		cfg := config.NewFromSettings(config.Settings{
			"UPSTREAM_PROVIDER":   "oidc",
			"UPSTREAM_CLIENT_ID":  "x",
			"UPSTREAM_ISSUER_URL": issuer.URL,
		})
		_, err := identity.NewBridge(ctx, cfg, "http://localhost/callback", identity.NewAllowlist(nil), fastRetries(0))
		require.Error(t, err)
	})
}

func TestProviderTokenIsRedacted(t *testing.T) {
	require.Equal(t, "[provider token]", identity.ProviderToken{}.String())
}
