package auth

import (
	"net/url"

	"github.com/jrsteele09/go-notes-mcp/oauthmodel"
)

// RedirectURL appends params to a client redirect URI, keeping any query the
// client registered.
func RedirectURL(redirectURI string, params url.Values) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for key, values := range params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ErrorRedirectURL reports an OAuth error to the client's redirect URI.
func ErrorRedirectURL(redirectURI, state string, oerr *oauthmodel.Error) (string, error) {
	params := url.Values{"error": {oerr.Code}}
	if oerr.Description != "" {
		params.Set("error_description", oerr.Description)
	}
	if state != "" {
		params.Set("state", state)
	}
	return RedirectURL(redirectURI, params)
}
