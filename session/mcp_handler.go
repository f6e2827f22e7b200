package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "github.com/jrsteele09/go-notes-mcp/internal/errors"
	"github.com/jrsteele09/go-notes-mcp/quota"
	"github.com/jrsteele09/go-notes-mcp/tools"
	"github.com/mark3labs/mcp-go/mcp"
)

var (
	ErrMethodNotFound = errors.New("method not found")
	ErrInvalidParams  = errors.New("invalid params")
)

// MCPHandler answers the MCP methods served by a session.
type MCPHandler struct {
	tools        *tools.Dispatcher
	serverInfo   mcp.Implementation
	instructions string
}

var _ Handler = (*MCPHandler)(nil)

func NewMCPHandler(dispatcher *tools.Dispatcher, name, version string) (*MCPHandler, error) {
	if dispatcher == nil {
		return nil, errors.New("[session.NewMCPHandler] dispatcher is required")
	}
	return &MCPHandler{
		tools:        dispatcher,
		serverInfo:   mcp.Implementation{Name: name, Version: version},
		instructions: "Personal notes. Use glob and grep to find notes, read to open them, write and edit to change them.",
	}, nil
}

func (h *MCPHandler) Handle(ctx context.Context, s Info, req Request) (any, error) {
	switch mcp.MCPMethod(req.Method) {
	case mcp.MethodInitialize:
		var params mcp.InitializeParams
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
		return h.initializeResult(params.ProtocolVersion), nil

	case mcp.MethodPing:
		return struct{}{}, nil

	case mcp.MethodToolsList:
		return mcp.ListToolsResult{Tools: h.tools.Tools()}, nil

	case mcp.MethodToolsCall:
		params, err := toolCallParams(req)
		if err != nil {
			return nil, err
		}
		result, err := h.tools.Execute(ctx, s.UserID, params)
		if errors.Is(err, tools.ErrUnknownTool) {
			return nil, invalidParams(err.Error())
		}
		return result, err

	case mcp.MethodPromptsList:
		return mcp.ListPromptsResult{Prompts: []mcp.Prompt{}}, nil

	case mcp.MethodResourcesList:
		resources, err := h.tools.ListResources(ctx, s.UserID)
		if err != nil {
			return nil, err
		}
		return mcp.ListResourcesResult{Resources: resources}, nil

	case mcp.MethodResourcesRead:
		var params mcp.ReadResourceParams
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
		if params.URI == "" {
			return nil, invalidParams("uri is required")
		}
		return h.tools.ReadResource(ctx, s.UserID, params.URI)
	}

	return nil, apperrors.Wrapf(ErrMethodNotFound, "%s", req.Method)
}

func (h *MCPHandler) PlannedWrite(ctx context.Context, userID string, req Request) (quota.Write, bool, error) {
	if mcp.MCPMethod(req.Method) != mcp.MethodToolsCall {
		return quota.Write{}, false, nil
	}
	params, err := toolCallParams(req)
	if err != nil {
		// The handler reports the bad params.
		return quota.Write{}, false, nil
	}
	return h.tools.PlannedWrite(ctx, userID, params)
}

func (h *MCPHandler) initializeResult(clientVersion string) mcp.InitializeResult {
	version := mcp.LATEST_PROTOCOL_VERSION
	for _, v := range mcp.ValidProtocolVersions {
		if v == clientVersion {
			version = v
			break
		}
	}

	var caps mcp.ServerCapabilities
	caps.Tools = &struct {
		ListChanged bool `json:"listChanged,omitempty"`
	}{}
	caps.Resources = &struct {
		Subscribe   bool `json:"subscribe,omitempty"`
		ListChanged bool `json:"listChanged,omitempty"`
	}{}
	caps.Prompts = &struct {
		ListChanged bool `json:"listChanged,omitempty"`
	}{}

	return mcp.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    caps,
		ServerInfo:      h.serverInfo,
		Instructions:    h.instructions,
	}
}

func toolCallParams(req Request) (mcp.CallToolParams, error) {
	var params mcp.CallToolParams
	if err := decodeParams(req.Params, &params); err != nil {
		return params, err
	}
	if params.Name == "" {
		return params, invalidParams("tool name is required")
	}
	return params, nil
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return invalidParams(fmt.Sprintf("malformed params: %v", err))
	}
	return nil
}

func invalidParams(msg string) error {
	return apperrors.Wrapf(ErrInvalidParams, "%s", msg)
}
