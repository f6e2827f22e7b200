package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	apperrors "github.com/jrsteele09/go-notes-mcp/internal/errors"
	"github.com/jrsteele09/go-notes-mcp/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"
)

const jsonRPCVersion = "2.0"

// JSON-RPC error codes. Codes above -32099 are the standard ones; the rest
// are stable server defined codes for each error kind.
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcInternalError  = -32603

	rpcUnavailable      = -32000
	rpcUnauthorized     = -32001
	rpcQuotaExceeded    = -32002
	rpcForbidden        = -32003
	rpcRateLimited      = -32004
	rpcSessionNotFound  = -32005
	rpcMissingSessionID = -32006
	rpcUpstreamError    = -32007
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *mcp.RequestId  `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      *mcp.RequestId `json:"id"`
	Result  any            `json:"result,omitempty"`
	Error   *rpcError      `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type rateLimitData struct {
	RetryAfterSeconds int `json:"retryAfterSeconds"`
}

// rpcFailure is an error as it goes on the wire: HTTP status plus body.
type rpcFailure struct {
	status     int
	err        rpcError
	retryAfter int
}

// classifyRPCError maps a handler or routing error to its HTTP status and
// JSON-RPC error. Internal causes are logged and replaced.
func classifyRPCError(err error) rpcFailure {
	switch {
	case errors.Is(err, session.ErrMethodNotFound):
		return rpcFailure{status: http.StatusOK, err: rpcError{Code: rpcMethodNotFound, Message: err.Error()}}
	case errors.Is(err, session.ErrInvalidParams):
		return rpcFailure{status: http.StatusOK, err: rpcError{Code: rpcInvalidParams, Message: err.Error()}}
	}

	e := apperrors.Classify(err)
	switch e.Kind {
	case apperrors.KindClient:
		return rpcFailure{status: http.StatusOK, err: rpcError{Code: rpcInvalidParams, Message: e.PublicMessage()}}
	case apperrors.KindQuota:
		return rpcFailure{status: http.StatusOK, err: rpcError{Code: rpcQuotaExceeded, Message: e.PublicMessage()}}
	case apperrors.KindRateLimit:
		seconds := retryAfterSeconds(e)
		return rpcFailure{
			status:     http.StatusTooManyRequests,
			err:        rpcError{Code: rpcRateLimited, Message: e.PublicMessage(), Data: rateLimitData{RetryAfterSeconds: seconds}},
			retryAfter: seconds,
		}
	case apperrors.KindAuth:
		return rpcFailure{status: http.StatusUnauthorized, err: rpcError{Code: rpcUnauthorized, Message: e.PublicMessage()}}
	case apperrors.KindAuthz:
		return rpcFailure{status: http.StatusForbidden, err: rpcError{Code: rpcForbidden, Message: e.PublicMessage()}}
	case apperrors.KindSessionNotFound:
		return rpcFailure{status: http.StatusNotFound, err: rpcError{Code: rpcSessionNotFound, Message: e.PublicMessage()}}
	case apperrors.KindMissingSessionID:
		return rpcFailure{status: http.StatusBadRequest, err: rpcError{Code: rpcMissingSessionID, Message: e.PublicMessage()}}
	case apperrors.KindUnavailable:
		return rpcFailure{status: http.StatusServiceUnavailable, err: rpcError{Code: rpcUnavailable, Message: e.PublicMessage()}}
	case apperrors.KindUpstream:
		return rpcFailure{status: http.StatusBadGateway, err: rpcError{Code: rpcUpstreamError, Message: e.PublicMessage()}}
	}

	log.Err(err).Msg("internal error handling mcp request")
	return rpcFailure{status: http.StatusInternalServerError, err: rpcError{Code: rpcInternalError, Message: "internal error"}}
}

// retryAfterSeconds rounds up so clients never retry early.
func retryAfterSeconds(e *apperrors.Error) int {
	seconds := int(math.Ceil(e.RetryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

func writeRPCResult(w http.ResponseWriter, id *mcp.RequestId, result any) {
	writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func writeRPCError(w http.ResponseWriter, id *mcp.RequestId, err error) {
	f := classifyRPCError(err)
	if f.retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(f.retryAfter))
	}
	writeJSON(w, f.status, rpcResponse{JSONRPC: jsonRPCVersion, ID: id, Error: &f.err})
}

func writeRPCProtocolError(w http.ResponseWriter, status, code int, msg string) {
	writeJSON(w, status, rpcResponse{JSONRPC: jsonRPCVersion, Error: &rpcError{Code: code, Message: msg}})
}
