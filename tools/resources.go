package tools

import (
	"context"
	"errors"
	"sort"
	"strings"

	apperrors "github.com/jrsteele09/go-notes-mcp/internal/errors"
	"github.com/jrsteele09/go-notes-mcp/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

const noteURIPrefix = "note:///"

// NoteURI returns the resource URI of a note.
func NoteURI(p string) string {
	return noteURIPrefix + p
}

// ListResources returns one resource per note.
func (d *Dispatcher) ListResources(ctx context.Context, userID string) ([]mcp.Resource, error) {
	objects, err := d.store.List(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Path < objects[j].Path })

	resources := make([]mcp.Resource, 0, len(objects))
	for _, obj := range objects {
		resources = append(resources, mcp.Resource{
			URI:      NoteURI(obj.Path),
			Name:     obj.Path,
			MIMEType: mimeType(obj.Path),
		})
	}
	return resources, nil
}

// ReadResource returns the content behind a note:/// URI.
func (d *Dispatcher) ReadResource(ctx context.Context, userID, uri string) (*mcp.ReadResourceResult, error) {
	if !strings.HasPrefix(uri, noteURIPrefix) {
		return nil, apperrors.Client("unsupported resource uri: " + uri)
	}
	p, err := storage.CleanPath(strings.TrimPrefix(uri, noteURIPrefix))
	if err != nil {
		return nil, apperrors.Client("invalid resource uri: " + uri)
	}

	data, err := d.store.Get(ctx, userID, p)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.Client("resource not found: " + uri)
	}
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []mcp.ResourceContents{
			mcp.TextResourceContents{URI: uri, MIMEType: mimeType(p), Text: string(data)},
		},
	}, nil
}

func mimeType(p string) string {
	if strings.HasSuffix(p, ".md") || strings.HasSuffix(p, ".markdown") {
		return "text/markdown"
	}
	return "text/plain"
}
