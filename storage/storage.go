// Package storage is the object store behind the note tools. Objects are
// addressed by user id and a user-relative path.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("object not found")
	ErrInvalidPath = errors.New("invalid path")
)

// ObjectInfo describes a stored object without its content.
type ObjectInfo struct {
	Path     string
	Size     int64
	Modified time.Time
}

// QuotaSnapshot is a point-in-time view of a user's aggregate usage.
type QuotaSnapshot struct {
	WithinQuota bool
	TotalBytes  int64
	TotalFiles  int
}

// Limits is the per-user storage ceiling.
type Limits struct {
	MaxBytes int64
	MaxFiles int
}

// Within reports whether the given usage fits inside the limits. Zero
// values mean unlimited.
func (l Limits) Within(totalBytes int64, totalFiles int) bool {
	if l.MaxBytes > 0 && totalBytes > l.MaxBytes {
		return false
	}
	if l.MaxFiles > 0 && totalFiles > l.MaxFiles {
		return false
	}
	return true
}

type Store interface {
	Get(ctx context.Context, userID, objectPath string) ([]byte, error)
	Put(ctx context.Context, userID, objectPath string, data []byte) error
	Delete(ctx context.Context, userID, objectPath string) error
	List(ctx context.Context, userID, prefix string) ([]ObjectInfo, error)
	Stat(ctx context.Context, userID, objectPath string) (ObjectInfo, error)
	Quota(ctx context.Context, userID string) (QuotaSnapshot, error)
	Limits() Limits
}

// CleanPath normalises a user supplied path to a relative slash separated
// form. Paths escaping the user's root are rejected.
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return "", ErrInvalidPath
	}
	for _, segment := range strings.Split(p, "/") {
		if segment == ".." {
			return "", ErrInvalidPath
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+p), "/")
	if cleaned == "" || cleaned == "." {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}
