// Package authflow keeps the state of authorization requests while the user
// is away signing in with the upstream identity provider.
package authflow

import (
	"context"
	"errors"
	"time"
)

var (
	ErrFlowNotFound = errors.New("pending flow not found")
	ErrInvalidState = errors.New("invalid state")
)

// PendingFlow is an authorization request waiting for the upstream callback.
type PendingFlow struct {
	ClientID            string    `json:"client_id"`
	RedirectURI         string    `json:"redirect_uri"`
	Scope               string    `json:"scope"`
	State               string    `json:"state,omitempty"`
	CodeChallenge       string    `json:"code_challenge"`
	CodeChallengeMethod string    `json:"code_challenge_method"`
	Resource            string    `json:"resource,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

type Repo interface {
	Save(ctx context.Context, flowID string, flow *PendingFlow, ttl time.Duration) error
	// Take returns the flow and removes it. A flow can be taken once.
	Take(ctx context.Context, flowID string) (*PendingFlow, error)
}
