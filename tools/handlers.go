package tools

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/jrsteele09/go-notes-mcp/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

const maxGrepMatches = 200

func (d *Dispatcher) handleRead(ctx context.Context, userID string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errResult := requirePath(req)
	if errResult != nil {
		return errResult, nil
	}

	data, err := d.store.Get(ctx, userID, p)
	if errors.Is(err, storage.ErrNotFound) {
		return mcp.NewToolResultErrorf("note not found: %s", p), nil
	}
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (d *Dispatcher) handleWrite(ctx context.Context, userID string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errResult := requirePath(req)
	if errResult != nil {
		return errResult, nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := d.store.Put(ctx, userID, p, []byte(content)); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("Wrote %d bytes to %s", len(content), p)), nil
}

func (d *Dispatcher) handleEdit(ctx context.Context, userID string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errResult := requirePath(req)
	if errResult != nil {
		return errResult, nil
	}
	oldString, err := req.RequireString("old_string")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newString, err := req.RequireString("new_string")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	current, err := d.store.Get(ctx, userID, p)
	if errors.Is(err, storage.ErrNotFound) {
		return mcp.NewToolResultErrorf("note not found: %s", p), nil
	}
	if err != nil {
		return nil, err
	}

	updated, count, err := applyEdit(string(current), oldString, newString, req.GetBool("replace_all", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := d.store.Put(ctx, userID, p, []byte(updated)); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("Replaced %d occurrence(s) in %s", count, p)), nil
}

func (d *Dispatcher) handleGlob(ctx context.Context, userID string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern, err := req.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	matcher, err := compileGlob(pattern)
	if err != nil {
		return mcp.NewToolResultErrorf("invalid glob pattern: %v", err), nil
	}

	objects, err := d.store.List(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, obj := range objects {
		if matcher.Match(obj.Path) {
			matches = append(matches, obj.Path)
		}
	}
	if len(matches) == 0 {
		return mcp.NewToolResultText("No notes matched"), nil
	}
	sort.Strings(matches)
	return mcp.NewToolResultText(strings.Join(matches, "\n")), nil
}

func (d *Dispatcher) handleGrep(ctx context.Context, userID string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern, err := req.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetBool("ignore_case", false) {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return mcp.NewToolResultErrorf("invalid regular expression: %v", err), nil
	}

	var filter glob.Glob
	if g := req.GetString("glob", ""); g != "" {
		if filter, err = compileGlob(g); err != nil {
			return mcp.NewToolResultErrorf("invalid glob pattern: %v", err), nil
		}
	}

	objects, err := d.store.List(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Path < objects[j].Path })

	var lines []string
	for _, obj := range objects {
		if filter != nil && !filter.Match(obj.Path) {
			continue
		}
		data, err := d.store.Get(ctx, userID, obj.Path)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		scanner := bufio.NewScanner(strings.NewReader(string(data)))
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for lineNo := 1; scanner.Scan(); lineNo++ {
			if re.MatchString(scanner.Text()) {
				lines = append(lines, fmt.Sprintf("%s:%d:%s", obj.Path, lineNo, scanner.Text()))
				if len(lines) >= maxGrepMatches {
					lines = append(lines, fmt.Sprintf("(stopped after %d matches)", maxGrepMatches))
					return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
				}
			}
		}
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("No matches"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func requirePath(req mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	raw, err := req.RequireString("path")
	if err != nil {
		return "", mcp.NewToolResultError(err.Error())
	}
	p, err := storage.CleanPath(raw)
	if err != nil {
		return "", mcp.NewToolResultErrorf("invalid path: %s", raw)
	}
	return p, nil
}

// compileGlob uses '/' as the separator so * stays inside one directory and
// ** crosses directories.
func compileGlob(pattern string) (glob.Glob, error) {
	return glob.Compile(strings.TrimPrefix(pattern, "/"), '/')
}

func applyEdit(content, oldString, newString string, replaceAll bool) (string, int, error) {
	if oldString == "" {
		return "", 0, errors.New("old_string must not be empty")
	}
	if oldString == newString {
		return "", 0, errors.New("old_string and new_string are identical")
	}
	count := strings.Count(content, oldString)
	switch {
	case count == 0:
		return "", 0, errors.New("old_string not found in note")
	case count > 1 && !replaceAll:
		return "", 0, fmt.Errorf("old_string appears %d times; add more context or set replace_all", count)
	}
	if replaceAll {
		return strings.ReplaceAll(content, oldString, newString), count, nil
	}
	return strings.Replace(content, oldString, newString, 1), 1, nil
}
