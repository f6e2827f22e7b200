// Package tools exposes a user's notes to MCP clients as five file style
// tools plus read-only resources.
package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-notes-mcp/internal/utils"
	"github.com/jrsteele09/go-notes-mcp/quota"
	"github.com/jrsteele09/go-notes-mcp/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	ToolRead  = "read"
	ToolWrite = "write"
	ToolEdit  = "edit"
	ToolGlob  = "glob"
	ToolGrep  = "grep"
)

var ErrUnknownTool = errors.New("unknown tool")

type handlerFunc func(ctx context.Context, userID string, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

type registeredTool struct {
	tool    mcp.Tool
	handler handlerFunc
}

// Dispatcher executes tool calls for a verified user. Tool level failures
// (missing file, bad pattern) are returned as error results; a returned
// error means the store failed.
type Dispatcher struct {
	store storage.Store
	tools []registeredTool
}

func NewDispatcher(store storage.Store) (*Dispatcher, error) {
	if store == nil {
		return nil, errors.New("[tools.NewDispatcher] store is required")
	}
	d := &Dispatcher{store: store}
	d.registerTools()
	return d, nil
}

func (d *Dispatcher) registerTools() {
	d.tools = []registeredTool{
		{
			tool: mcp.NewTool(ToolRead,
				mcp.WithDescription("Read a note"),
				mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note, e.g. projects/ideas.md")),
				annotations(true, false),
			),
			handler: d.handleRead,
		},
		{
			tool: mcp.NewTool(ToolWrite,
				mcp.WithDescription("Create or overwrite a note"),
				mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note")),
				mcp.WithString("content", mcp.Required(), mcp.Description("Full content of the note")),
				annotations(false, true),
			),
			handler: d.handleWrite,
		},
		{
			tool: mcp.NewTool(ToolEdit,
				mcp.WithDescription("Replace text in a note"),
				mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note")),
				mcp.WithString("old_string", mcp.Required(), mcp.Description("Exact text to replace")),
				mcp.WithString("new_string", mcp.Required(), mcp.Description("Replacement text")),
				mcp.WithBoolean("replace_all", mcp.Description("Replace every occurrence instead of exactly one (default: false)")),
				annotations(false, true),
			),
			handler: d.handleEdit,
		},
		{
			tool: mcp.NewTool(ToolGlob,
				mcp.WithDescription("List notes whose path matches a glob pattern"),
				mcp.WithString("pattern", mcp.Required(), mcp.Description("Glob pattern, ** matches across directories")),
				annotations(true, false),
			),
			handler: d.handleGlob,
		},
		{
			tool: mcp.NewTool(ToolGrep,
				mcp.WithDescription("Search note contents with a regular expression"),
				mcp.WithString("pattern", mcp.Required(), mcp.Description("RE2 regular expression")),
				mcp.WithString("glob", mcp.Description("Only search notes whose path matches this glob")),
				mcp.WithBoolean("ignore_case", mcp.Description("Case insensitive match (default: false)")),
				annotations(true, false),
			),
			handler: d.handleGrep,
		},
	}
}

// annotations tells clients which tools change notes. No tool reaches
// outside the user's own notes.
func annotations(readOnly, destructive bool) mcp.ToolOption {
	return mcp.WithToolAnnotation(mcp.ToolAnnotation{
		ReadOnlyHint:    utils.Ptr(readOnly),
		DestructiveHint: utils.Ptr(destructive),
		IdempotentHint:  utils.Ptr(readOnly),
		OpenWorldHint:   utils.Ptr(false),
	})
}

// Tools returns the tool descriptors in a stable order.
func (d *Dispatcher) Tools() []mcp.Tool {
	tools := make([]mcp.Tool, 0, len(d.tools))
	for _, t := range d.tools {
		tools = append(tools, t.tool)
	}
	return tools
}

// Execute runs a tool on behalf of userID.
func (d *Dispatcher) Execute(ctx context.Context, userID string, params mcp.CallToolParams) (*mcp.CallToolResult, error) {
	for _, t := range d.tools {
		if t.tool.Name == params.Name {
			return t.handler(ctx, userID, mcp.CallToolRequest{Params: params})
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTool, params.Name)
}

// PlannedWrite reports the object a call would store, for quota checks
// before dispatch. ok is false for calls that do not grow storage or that
// will fail validation anyway.
func (d *Dispatcher) PlannedWrite(ctx context.Context, userID string, params mcp.CallToolParams) (quota.Write, bool, error) {
	req := mcp.CallToolRequest{Params: params}

	switch params.Name {
	case ToolWrite:
		p, err := storage.CleanPath(req.GetString("path", ""))
		if err != nil {
			return quota.Write{}, false, nil
		}
		return quota.Write{Path: p, NewSize: int64(len(req.GetString("content", "")))}, true, nil

	case ToolEdit:
		p, err := storage.CleanPath(req.GetString("path", ""))
		if err != nil {
			return quota.Write{}, false, nil
		}
		current, err := d.store.Get(ctx, userID, p)
		if errors.Is(err, storage.ErrNotFound) {
			return quota.Write{}, false, nil
		}
		if err != nil {
			return quota.Write{}, false, err
		}
		updated, _, editErr := applyEdit(string(current), req.GetString("old_string", ""), req.GetString("new_string", ""), req.GetBool("replace_all", false))
		if editErr != nil {
			return quota.Write{}, false, nil
		}
		return quota.Write{Path: p, NewSize: int64(len(updated))}, true, nil
	}
	return quota.Write{}, false, nil
}
