package auth_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/jrsteele09/go-notes-mcp/auth"
	"github.com/jrsteele09/go-notes-mcp/oauthmodel"
	"github.com/stretchr/testify/require"
)

func TestValidateCodeVerifier(t *testing.T) {
	require.True(t, auth.ValidateCodeVerifier("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"))
	require.True(t, auth.ValidateCodeVerifier(strings.Repeat("a~.", 40)))
	require.False(t, auth.ValidateCodeVerifier("too-short"))
	require.False(t, auth.ValidateCodeVerifier(strings.Repeat("a", 129)))
	require.False(t, auth.ValidateCodeVerifier(strings.Repeat("a", 42)+"+"))
}

func TestValidateRedirectURI(t *testing.T) {
	require.Nil(t, auth.ValidateRedirectURI("https://app.example.com/callback"))
	require.Nil(t, auth.ValidateRedirectURI("http://127.0.0.1:33418/callback"))

	for _, uri := range []string{"", "callback", "//app.example.com/cb", "https://app.example.com/cb#x", "javascript:alert(1)"} {
		oerr := auth.ValidateRedirectURI(uri)
		require.NotNil(t, oerr, uri)
		require.Equal(t, oauthmodel.ErrCodeInvalidRedirectURI, oerr.Code)
	}
}

func TestRedirectURL(t *testing.T) {
	redirect, err := auth.RedirectURL("https://app.example.com/cb?tenant=a", url.Values{"code": {"xyz"}})
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	require.Equal(t, "a", u.Query().Get("tenant"))
	require.Equal(t, "xyz", u.Query().Get("code"))

	redirect, err = auth.ErrorRedirectURL("https://app.example.com/cb", "s1",
		oauthmodel.NewError(oauthmodel.ErrCodeAccessDenied, "denied"))
	require.NoError(t, err)
	u, err = url.Parse(redirect)
	require.NoError(t, err)
	require.Equal(t, "access_denied", u.Query().Get("error"))
	require.Equal(t, "s1", u.Query().Get("state"))
}
