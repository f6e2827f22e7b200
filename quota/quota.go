// Package quota rejects writes that would take a user past their storage
// ceiling.
package quota

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/jrsteele09/go-notes-mcp/internal/errors"
	"github.com/jrsteele09/go-notes-mcp/storage"
)

// Write describes the object a pending tool call will produce.
type Write struct {
	Path    string
	NewSize int64
}

type Enforcer struct {
	store storage.Store
}

func NewEnforcer(store storage.Store) (*Enforcer, error) {
	if store == nil {
		return nil, errors.New("[quota.NewEnforcer] store is required")
	}
	return &Enforcer{store: store}, nil
}

// Check returns a quota error when applying w would exceed the user's
// limits. It reads usage and does not reserve it.
func (e *Enforcer) Check(ctx context.Context, userID string, w Write) error {
	snapshot, err := e.store.Quota(ctx, userID)
	if err != nil {
		return fmt.Errorf("quota snapshot: %w", err)
	}

	var existing int64
	newFile := false
	info, err := e.store.Stat(ctx, userID, w.Path)
	switch {
	case err == nil:
		existing = info.Size
	case errors.Is(err, storage.ErrNotFound):
		newFile = true
	default:
		return fmt.Errorf("quota stat: %w", err)
	}

	projectedBytes := snapshot.TotalBytes - existing + w.NewSize
	projectedFiles := snapshot.TotalFiles
	if newFile {
		projectedFiles++
	}

	limits := e.store.Limits()
	if limits.MaxFiles > 0 && projectedFiles > limits.MaxFiles {
		return apperrors.QuotaExceeded(fmt.Sprintf("file limit of %d reached", limits.MaxFiles))
	}
	if limits.MaxBytes > 0 && projectedBytes > limits.MaxBytes {
		return apperrors.QuotaExceeded(fmt.Sprintf("storage limit of %d bytes would be exceeded (%d bytes used)", limits.MaxBytes, snapshot.TotalBytes))
	}
	// Usage already over the ceiling only permits writes that shrink it.
	if !snapshot.WithinQuota && projectedBytes >= snapshot.TotalBytes && projectedFiles >= snapshot.TotalFiles {
		return apperrors.QuotaExceeded("storage quota exceeded")
	}
	return nil
}
