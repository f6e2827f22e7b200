// Package session routes MCP requests to per-session actors. Each actor is
// the single writer of its session: it runs one request at a time in arrival
// order and owns the session's inactivity timer.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jrsteele09/go-notes-mcp/quota"
	"github.com/mark3labs/mcp-go/mcp"
)

// State is the lifecycle state of a session.
type State int32

const (
	StateCreated State = iota
	StateActive        // a request is being processed
	StateIdle          // waiting for the next request, timer pending
	StateExpired       // terminal
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateIdle:
		return "idle"
	default:
		return "expired"
	}
}

// Info is a read-only view of a session.
type Info struct {
	ID           string
	UserID       string
	CreatedAt    time.Time
	LastActiveAt time.Time
	State        State
}

// Request is one JSON-RPC message addressed to a session. A nil ID marks a
// notification, which gets no response.
type Request struct {
	ID     *mcp.RequestId
	Method string
	Params json.RawMessage
}

func (r Request) IsNotification() bool {
	return r.ID == nil
}

// Response is what the handler produced for a request.
type Response struct {
	Result any
	Err    error
}

// Handler executes MCP methods for a session.
type Handler interface {
	Handle(ctx context.Context, s Info, req Request) (any, error)
	// PlannedWrite reports the object a request would store so quota can be
	// checked before it runs.
	PlannedWrite(ctx context.Context, userID string, req Request) (quota.Write, bool, error)
}

// QuotaChecker rejects writes that exceed a user's storage limits.
type QuotaChecker interface {
	Check(ctx context.Context, userID string, w quota.Write) error
}

var _ QuotaChecker = (*quota.Enforcer)(nil)
