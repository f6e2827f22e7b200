package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/go-notes-mcp/internal/errors"
	"github.com/jrsteele09/go-notes-mcp/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"
)

const maxMCPBodyBytes = 4 << 20

// MCPPost routes one JSON-RPC message to its session. Without a session id
// only initialize is accepted, and it creates the session.
func (s *Server) MCPPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := AccessTokenFromContext(r.Context())
		if !ok {
			s.writeUnauthorized(w, "", "Missing access token")
			return
		}

		req, ok := readRPCRequest(w, r)
		if !ok {
			return
		}

		var (
			actor   *session.Actor
			created bool
			err     error
		)
		sessionID := r.Header.Get(HeaderSessionID)
		switch {
		case sessionID != "":
			actor, err = s.sessions.Lookup(sessionID, t.UserID)
		case req.Method == string(mcp.MethodInitialize) && !req.IsNotification():
			actor, err = s.sessions.Create(t.UserID)
			created = true
		default:
			err = apperrors.MissingSessionID()
		}
		if err != nil {
			writeRPCError(w, req.ID, err)
			return
		}

		// A failed initialize leaves no session behind.
		discard := func() {
			if created {
				actor.Close()
			}
		}

		pending, err := actor.Submit(r.Context(), req)
		if err != nil {
			discard()
			writeRPCError(w, req.ID, err)
			return
		}
		defer pending.Flushed()

		resp, err := pending.Wait(r.Context())
		if err != nil {
			discard()
			if r.Context().Err() != nil {
				return // client went away
			}
			writeRPCError(w, req.ID, err)
			return
		}

		if req.IsNotification() {
			w.WriteHeader(http.StatusAccepted)
			return
		}

		if resp.Err != nil {
			discard()
			writeRPCError(w, req.ID, resp.Err)
			flush(w)
			return
		}

		if created {
			w.Header().Set(HeaderSessionID, actor.ID())
		}
		writeRPCResult(w, req.ID, resp.Result)
		flush(w)
	}
}

// MCPStream holds a server-sent event stream open for the session, writing
// keep-alive comments until the client disconnects or the session expires.
// The stream does not count as session activity.
func (s *Server) MCPStream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := AccessTokenFromContext(r.Context())
		if !ok {
			s.writeUnauthorized(w, "", "Missing access token")
			return
		}

		actor, err := s.sessions.Lookup(r.Header.Get(HeaderSessionID), t.UserID)
		if err != nil {
			writeRPCError(w, nil, err)
			return
		}

		rc := http.NewResponseController(w)
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		if err := rc.Flush(); err != nil {
			log.Warn().Err(err).Msg("event stream not supported by response writer")
			return
		}

		ticker := time.NewTicker(s.keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-actor.Done():
				return
			case <-ticker.C:
				if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	}
}

// MCPDelete closes the session on behalf of its owner.
func (s *Server) MCPDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := AccessTokenFromContext(r.Context())
		if !ok {
			s.writeUnauthorized(w, "", "Missing access token")
			return
		}

		if err := s.sessions.Close(r.Header.Get(HeaderSessionID), t.UserID); err != nil {
			writeRPCError(w, nil, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// readRPCRequest decodes a single JSON-RPC message. Batches are not part of
// the current MCP transport and are rejected.
func readRPCRequest(w http.ResponseWriter, r *http.Request) (session.Request, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMCPBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeRPCProtocolError(w, http.StatusRequestEntityTooLarge, rpcInvalidRequest, "request body too large")
			return session.Request{}, false
		}
		writeRPCProtocolError(w, http.StatusBadRequest, rpcParseError, "failed to read request body")
		return session.Request{}, false
	}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		writeRPCProtocolError(w, http.StatusBadRequest, rpcInvalidRequest, "batch requests are not supported")
		return session.Request{}, false
	}

	var msg rpcRequest
	if err := json.Unmarshal(body, &msg); err != nil {
		writeRPCProtocolError(w, http.StatusBadRequest, rpcParseError, "parse error")
		return session.Request{}, false
	}
	if msg.JSONRPC != jsonRPCVersion || msg.Method == "" {
		writeJSON(w, http.StatusBadRequest, rpcResponse{
			JSONRPC: jsonRPCVersion,
			ID:      msg.ID,
			Error:   &rpcError{Code: rpcInvalidRequest, Message: "invalid JSON-RPC request"},
		})
		return session.Request{}, false
	}

	return session.Request{ID: msg.ID, Method: msg.Method, Params: msg.Params}, true
}

func flush(w http.ResponseWriter) {
	_ = http.NewResponseController(w).Flush()
}
