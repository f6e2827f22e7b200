package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/jrsteele09/go-notes-mcp/internal/errors"
	"github.com/jrsteele09/go-notes-mcp/token"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyAccessToken stores the validated access token
	ContextKeyAccessToken ContextKey = "access_token"
)

// AccessTokenFromContext returns the token RequireAuth attached to the request.
func AccessTokenFromContext(ctx context.Context) (*token.AccessToken, bool) {
	t, ok := ctx.Value(ContextKeyAccessToken).(*token.AccessToken)
	return t, ok && t != nil
}

// RequireAuth is middleware that validates a Bearer access token issued by
// this server. It runs before any session lookup.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				s.writeUnauthorized(w, "", "Missing or malformed Authorization header")
				return
			}

			t, err := s.auth.ValidateAccessToken(r.Context(), raw)
			if err != nil {
				if apperrors.KindOf(err) != apperrors.KindAuth {
					log.Err(err).Msg("access token validation failed")
					writeJSONError(w, "server_error", "internal error", http.StatusInternalServerError)
					return
				}
				s.writeUnauthorized(w, "invalid_token", "Invalid or expired access token")
				return
			}

			if t.Resource != "" && t.Resource != s.resourceURL() && t.Resource != s.baseURL {
				s.writeUnauthorized(w, "invalid_token", "Token was issued for another resource")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAccessToken, t)
			next(w, r.WithContext(ctx))
		}
	}
}

// writeUnauthorized points the client at the protected resource metadata so
// it can discover the authorization server (RFC 9728 section 5.1).
func (s *Server) writeUnauthorized(w http.ResponseWriter, errorCode, description string) {
	challenge := fmt.Sprintf(`Bearer resource_metadata="%s%s"`, s.baseURL, RouteWellKnownProtectedResource)
	if errorCode != "" {
		challenge += fmt.Sprintf(`, error="%s", error_description="%s"`, errorCode, description)
	}
	w.Header().Set("WWW-Authenticate", challenge)
	if errorCode == "" {
		errorCode = "unauthorized"
	}
	writeJSONError(w, errorCode, description, http.StatusUnauthorized)
}

func (s *Server) resourceURL() string {
	return s.baseURL + RouteMCP
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	raw := strings.TrimSpace(parts[1])
	return raw, raw != ""
}

// clientCredentials reads client authentication from HTTP Basic auth
// (client_secret_basic) or the form body (client_secret_post / none).
// ParseForm must already have been called.
func clientCredentials(r *http.Request) (clientID, clientSecret string) {
	if id, secret, ok := r.BasicAuth(); ok {
		// RFC 6749 section 2.3.1: both parts are form-urlencoded.
		if decoded, err := url.QueryUnescape(id); err == nil {
			id = decoded
		}
		if decoded, err := url.QueryUnescape(secret); err == nil {
			secret = decoded
		}
		return id, secret
	}
	return r.PostFormValue("client_id"), r.PostFormValue("client_secret")
}
