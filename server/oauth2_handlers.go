package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-notes-mcp/auth"
	"github.com/jrsteele09/go-notes-mcp/oauth2"
	"github.com/jrsteele09/go-notes-mcp/oauthmodel"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"

	maxRegistrationBytes = 64 << 10
)

// Register handles RFC 7591 dynamic client registration.
func (s *Server) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.registrationLimiter.Allow(remoteAddr(r)) {
			w.Header().Set("Retry-After", "60")
			writeJSONError(w, "too_many_requests", "registration rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		var req oauth2.RegistrationRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRegistrationBytes)).Decode(&req); err != nil {
			writeJSONError(w, oauthmodel.ErrCodeInvalidClientMetadata, "request body must be a JSON client metadata document", http.StatusBadRequest)
			return
		}

		resp, err := s.auth.Register(r.Context(), req)
		if err != nil {
			writeOAuthError(w, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusCreated, resp)
	}
}

// Authorize begins the authorization flow by sending the user agent to the
// upstream identity provider.
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := parseAuthorizationRequest(r)

		upstreamURL, err := s.auth.Authorize(r.Context(), req)
		if err != nil {
			oerr := oauthmodel.AsError(err)
			if !oerr.Redirectable {
				writeOAuthError(w, oerr)
				return
			}
			logOAuthError(oerr, "authorization request rejected")
			redirectURL, rerr := auth.ErrorRedirectURL(req.RedirectURI, req.State, oerr)
			if rerr != nil {
				writeOAuthError(w, rerr)
				return
			}
			http.Redirect(w, r, redirectURL, http.StatusFound)
			return
		}

		http.Redirect(w, r, upstreamURL, http.StatusFound)
	}
}

// Callback receives the upstream identity result and sends the user agent
// back to the client with a code or an access_denied error.
func (s *Server) Callback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		redirectURL, err := s.auth.Callback(r.Context(), q.Get("state"), q.Get("code"), q.Get("error"))
		if err != nil {
			writeOAuthError(w, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, redirectURL, http.StatusFound)
	}
}

// Token exchanges an authorization code for an access token.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, oauthmodel.ErrCodeInvalidRequest, "Failed to parse form data", http.StatusBadRequest)
			return
		}

		clientID, clientSecret := clientCredentials(r)
		tokenReq := oauthmodel.TokenRequest{
			GrantType:    oauth2.GrantType(r.PostFormValue("grant_type")),
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Code:         r.PostFormValue("code"),
			CodeVerifier: r.PostFormValue("code_verifier"),
			RedirectURI:  r.PostFormValue("redirect_uri"),
		}

		tokenResponse, err := s.auth.Token(r.Context(), tokenReq)
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		if err != nil {
			if _, _, basic := r.BasicAuth(); basic && oauthmodel.AsError(err).Code == oauthmodel.ErrCodeInvalidClient {
				w.Header().Set("WWW-Authenticate", `Basic realm="token"`)
			}
			writeOAuthError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, tokenResponse)
	}
}

// Revoke handles RFC 7009 token revocation. The response is 200 whether or
// not the token was known.
func (s *Server) Revoke() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, oauthmodel.ErrCodeInvalidRequest, "Failed to parse form data", http.StatusBadRequest)
			return
		}

		rawToken := r.PostFormValue("token")
		if rawToken == "" {
			writeJSONError(w, oauthmodel.ErrCodeInvalidRequest, "token parameter is required", http.StatusBadRequest)
			return
		}

		clientID, _ := clientCredentials(r)
		if err := s.auth.Revoke(r.Context(), rawToken, clientID); err != nil {
			log.Err(err).Str("clientID", clientID).Msg("token revocation failed")
		}

		w.WriteHeader(http.StatusOK)
	}
}

// WellKnownAuthorizationServer serves the RFC 8414 metadata document.
func (s *Server) WellKnownAuthorizationServer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, s.auth.Metadata(s.baseURL))
	}
}

// WellKnownProtectedResource serves the RFC 9728 metadata for /mcp.
func (s *Server) WellKnownProtectedResource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, s.auth.ResourceMetadata(s.baseURL, s.config.GetAppName()))
	}
}

func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": s.sessions.Count(),
		})
	}
}

// Helper functions

func parseAuthorizationRequest(r *http.Request) *oauthmodel.AuthorizationRequest {
	q := r.URL.Query()
	return &oauthmodel.AuthorizationRequest{
		ClientID:            q.Get("client_id"),
		ResponseType:        oauth2.ResponseType(q.Get("response_type")),
		RedirectURI:         q.Get("redirect_uri"),
		Scope:               q.Get("scope"),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: oauth2.CodeMethodType(q.Get("code_challenge_method")),
		Resource:            q.Get("resource"),
	}
}

// oauthStatus maps an OAuth error code to its HTTP status.
func oauthStatus(code string) int {
	switch code {
	case oauthmodel.ErrCodeInvalidClient:
		return http.StatusUnauthorized
	case oauthmodel.ErrCodeServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// writeOAuthError writes err as an RFC 6749 error body. Internal causes are
// logged, never returned.
func writeOAuthError(w http.ResponseWriter, err error) {
	oerr := oauthmodel.AsError(err)
	logOAuthError(oerr, "oauth request failed")
	writeJSONError(w, oerr.Code, oerr.Description, oauthStatus(oerr.Code))
}

func logOAuthError(oerr *oauthmodel.Error, msg string) {
	if oerr.Code == oauthmodel.ErrCodeServerError {
		log.Err(oerr).Msg(msg)
		return
	}
	log.Debug().Str("error", oerr.Code).Str("description", oerr.Description).Msg(msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to write response")
	}
}

// writeJSONError writes an OAuth2 error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, oauth2.ErrorResponse{
		Error:            errorCode,
		ErrorDescription: description,
	})
}
