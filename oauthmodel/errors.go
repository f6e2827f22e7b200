package oauthmodel

import (
	"errors"
	"fmt"
)

// OAuth 2.1 / RFC 7591 error codes.
const (
	ErrCodeInvalidRequest          = "invalid_request"
	ErrCodeInvalidClient           = "invalid_client"
	ErrCodeInvalidGrant            = "invalid_grant"
	ErrCodeUnauthorizedClient      = "unauthorized_client"
	ErrCodeUnsupportedGrantType    = "unsupported_grant_type"
	ErrCodeUnsupportedResponseType = "unsupported_response_type"
	ErrCodeInvalidScope            = "invalid_scope"
	ErrCodeAccessDenied            = "access_denied"
	ErrCodeServerError             = "server_error"
	ErrCodeInvalidRedirectURI      = "invalid_redirect_uri"
	ErrCodeInvalidClientMetadata   = "invalid_client_metadata"
)

var (
	ErrInvalidCodeChallenge       = errors.New("invalid code challenge")
	ErrInvalidCodeChallengeMethod = errors.New("invalid code challenge method")
	ErrInvalidRedirectUri         = errors.New("invalid or no redirect uri")
	ErrInvalidResponseType        = errors.New("unsupported response type")
	ErrMissingPKCE                = errors.New("code_challenge is required")
)

// Error is an OAuth protocol error. Code is one of the ErrCode constants and
// Description is safe to return to the client.
type Error struct {
	Code        string
	Description string

	// Redirectable errors are reported to the client's redirect URI. It is
	// only set once the client and redirect URI have been verified.
	Redirectable bool

	Err error
}

func NewError(code, description string) *Error {
	return &Error{Code: code, Description: description}
}

// Wrap attaches an internal cause. The cause is never sent to the client.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// Redirect marks the error as reportable via redirect.
func (e *Error) Redirect() *Error {
	e.Redirectable = true
	return e
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts an OAuth error from err's chain, falling back to
// server_error for anything unclassified.
func AsError(err error) *Error {
	var oauthErr *Error
	if errors.As(err, &oauthErr) {
		return oauthErr
	}
	return NewError(ErrCodeServerError, "internal server error").Wrap(err)
}
