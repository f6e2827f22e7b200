package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an error for the transport layer. Every kind maps to one
// HTTP status and one stable JSON-RPC error code.
type Kind int

const (
	KindInternal Kind = iota
	KindClient
	KindAuth
	KindAuthz
	KindRateLimit
	KindQuota
	KindUpstream
	KindSessionNotFound
	KindMissingSessionID
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindClient:
		return "client_error"
	case KindAuth:
		return "auth_error"
	case KindAuthz:
		return "authz_error"
	case KindRateLimit:
		return "rate_limited"
	case KindQuota:
		return "quota_exceeded"
	case KindUpstream:
		return "upstream_error"
	case KindSessionNotFound:
		return "session_not_found"
	case KindMissingSessionID:
		return "missing_session_id"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal_error"
	}
}

// Error is a classified error. Message is safe to show to a client; Err holds
// the internal cause and is only ever logged.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// PublicMessage returns the client facing message. Internal errors never
// expose their cause.
func (e *Error) PublicMessage() string {
	if e.Kind == KindInternal {
		return "internal error"
	}
	return e.Message
}

func newError(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func Client(msg string) *Error { return newError(KindClient, ErrInvalidRequest, msg) }

func Auth(cause error, msg string) *Error { return newError(KindAuth, cause, msg) }

func Authz(msg string) *Error { return newError(KindAuthz, ErrAccessDenied, msg) }

func Upstream(cause error, msg string) *Error { return newError(KindUpstream, cause, msg) }

func Internal(cause error) *Error { return newError(KindInternal, cause, "internal error") }

func SessionNotFound() *Error {
	return newError(KindSessionNotFound, ErrSessionNotFound, "session not found, re-initialize")
}

func MissingSessionID() *Error {
	return newError(KindMissingSessionID, ErrMissingSessionID, "Mcp-Session-Id header is required")
}

func RateLimited(retryAfter time.Duration) *Error {
	e := newError(KindRateLimit, nil, "rate limit exceeded")
	e.RetryAfter = retryAfter
	return e
}

func QuotaExceeded(msg string) *Error { return newError(KindQuota, nil, msg) }

func Unavailable(cause error, msg string) *Error { return newError(KindUnavailable, cause, msg) }

// KindOf returns the kind of the first classified error in err's chain.
// Unclassified errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Classify returns err as a classified error, wrapping unclassified errors
// as internal.
func Classify(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
