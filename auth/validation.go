package auth

import (
	"net/url"
	"strings"

	"github.com/jrsteele09/go-notes-mcp/oauth2"
	"github.com/jrsteele09/go-notes-mcp/oauthmodel"
)

// ValidateRedirectURI accepts absolute http(s) URIs without a fragment.
func ValidateRedirectURI(uri string) *oauthmodel.Error {
	u, err := url.Parse(uri)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return oauthmodel.NewError(oauthmodel.ErrCodeInvalidRedirectURI, "redirect_uri must be an absolute URI: "+uri)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return oauthmodel.NewError(oauthmodel.ErrCodeInvalidRedirectURI, "redirect_uri must use http or https: "+uri)
	}
	if u.Fragment != "" || strings.Contains(uri, "#") {
		return oauthmodel.NewError(oauthmodel.ErrCodeInvalidRedirectURI, "redirect_uri must not contain a fragment: "+uri)
	}
	return nil
}

// ValidateRegistration checks client metadata and fills in defaults.
func ValidateRegistration(req *oauth2.RegistrationRequest, supportedScopes []string) *oauthmodel.Error {
	if len(req.RedirectURIs) == 0 {
		return invalidRequest("redirect_uris is required")
	}
	for _, uri := range req.RedirectURIs {
		if oerr := ValidateRedirectURI(uri); oerr != nil {
			return oerr
		}
	}

	if req.TokenEndpointAuthMethod == "" {
		req.TokenEndpointAuthMethod = oauth2.AuthMethodNone
	}
	if !req.TokenEndpointAuthMethod.Valid() {
		return invalidClientMetadata("unsupported token_endpoint_auth_method: " + string(req.TokenEndpointAuthMethod))
	}

	if len(req.GrantTypes) == 0 {
		req.GrantTypes = []string{string(oauth2.AuthorizationCodeGrant)}
	}
	for _, gt := range req.GrantTypes {
		if gt != string(oauth2.AuthorizationCodeGrant) {
			return invalidClientMetadata("unsupported grant_type: " + gt)
		}
	}

	if len(req.ResponseTypes) == 0 {
		req.ResponseTypes = []string{string(oauth2.CodeResponseType)}
	}
	for _, rt := range req.ResponseTypes {
		if rt != string(oauth2.CodeResponseType) {
			return invalidClientMetadata("unsupported response_type: " + rt)
		}
	}

	if strings.TrimSpace(req.Scope) == "" {
		req.Scope = strings.Join(supportedScopes, " ")
	}
	for _, scope := range strings.Fields(req.Scope) {
		if !contains(supportedScopes, scope) {
			return oauthmodel.NewError(oauthmodel.ErrCodeInvalidScope, "unsupported scope: "+scope)
		}
	}
	return nil
}

// ValidateCodeVerifier checks RFC 7636 verifier syntax: 43 to 128 unreserved characters.
func ValidateCodeVerifier(verifier string) bool {
	if len(verifier) < 43 || len(verifier) > 128 {
		return false
	}
	for _, r := range verifier {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '-', r == '.', r == '_', r == '~':
		default:
			return false
		}
	}
	return true
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
