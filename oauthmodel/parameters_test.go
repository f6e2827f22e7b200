package oauthmodel_test

import (
	"testing"

	"github.com/jrsteele09/go-notes-mcp/clients"
	"github.com/jrsteele09/go-notes-mcp/oauth2"
	"github.com/jrsteele09/go-notes-mcp/oauthmodel"
	"github.com/stretchr/testify/require"
)

const (
	testRedirectURI   = "http://localhost:3000/callback"
	testCodeChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
)

func validRequest() oauthmodel.AuthorizationRequest {
	return oauthmodel.AuthorizationRequest{
		ClientID:            "client-1",
		ResponseType:        oauth2.CodeResponseType,
		RedirectURI:         testRedirectURI,
		Scope:               "read write",
		State:               "state-123",
		CodeChallenge:       testCodeChallenge,
		CodeChallengeMethod: oauth2.CodeMethodTypeS256,
	}
}

func TestAuthorizationRequestValidation(t *testing.T) {
	client := &clients.Client{ID: "client-1", RedirectURIs: []string{testRedirectURI}, Scopes: []string{"read", "write"}}
	supported := []string{"read", "write"}

	t.Run("valid request", func(t *testing.T) {
		req := validRequest()
		require.Nil(t, req.ValidateClient(client))
		require.Nil(t, req.ValidateParameters(client, supported))
	})

	t.Run("redirect mismatch is invalid_client and not redirectable", func(t *testing.T) {
		req := validRequest()
		req.RedirectURI = "https://evil.example.com/callback"
		err := req.ValidateClient(client)
		require.NotNil(t, err)
		require.Equal(t, oauthmodel.ErrCodeInvalidClient, err.Code)
		require.False(t, err.Redirectable)
	})

	tests := []struct {
		name   string
		modify func(*oauthmodel.AuthorizationRequest)
		code   string
	}{
		{"wrong response type", func(r *oauthmodel.AuthorizationRequest) { r.ResponseType = "token" }, oauthmodel.ErrCodeUnsupportedResponseType},
		{"missing challenge", func(r *oauthmodel.AuthorizationRequest) { r.CodeChallenge = "" }, oauthmodel.ErrCodeInvalidRequest},
		{"plain method", func(r *oauthmodel.AuthorizationRequest) { r.CodeChallengeMethod = oauth2.CodeMethodTypePlain }, oauthmodel.ErrCodeInvalidRequest},
		{"short challenge", func(r *oauthmodel.AuthorizationRequest) { r.CodeChallenge = "abc" }, oauthmodel.ErrCodeInvalidRequest},
		{"padded challenge", func(r *oauthmodel.AuthorizationRequest) { r.CodeChallenge = testCodeChallenge[:42] + "=" }, oauthmodel.ErrCodeInvalidRequest},
		{"unknown scope", func(r *oauthmodel.AuthorizationRequest) { r.Scope = "read admin" }, oauthmodel.ErrCodeInvalidScope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.modify(&req)
			err := req.ValidateParameters(client, supported)
			require.NotNil(t, err)
			require.Equal(t, tt.code, err.Code)
			require.True(t, err.Redirectable)
		})
	}
}
