package errors_test

import (
	"fmt"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-notes-mcp/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Run("wrapped classified error keeps its kind", func(t *testing.T) {
		err := fmt.Errorf("dispatch: %w", apperrors.RateLimited(30*time.Second))
		require.Equal(t, apperrors.KindRateLimit, apperrors.KindOf(err))

		classified := apperrors.Classify(err)
		require.Equal(t, 30*time.Second, classified.RetryAfter)
	})

	t.Run("plain error becomes internal and hides its cause", func(t *testing.T) {
		classified := apperrors.Classify(fmt.Errorf("redis: connection refused"))
		require.Equal(t, apperrors.KindInternal, classified.Kind)
		require.Equal(t, "internal error", classified.PublicMessage())
		require.Contains(t, classified.Error(), "connection refused")
	})

	t.Run("session errors are distinguishable", func(t *testing.T) {
		require.NotEqual(t,
			apperrors.KindOf(apperrors.SessionNotFound()),
			apperrors.KindOf(apperrors.MissingSessionID()))
		require.True(t, apperrors.Is(apperrors.SessionNotFound(), apperrors.ErrSessionNotFound))
		require.True(t, apperrors.Is(apperrors.MissingSessionID(), apperrors.ErrMissingSessionID))
	})

	t.Run("unavailable keeps its cause", func(t *testing.T) {
		err := apperrors.Unavailable(fmt.Errorf("too many sessions"), "server busy")
		require.Equal(t, apperrors.KindUnavailable, apperrors.KindOf(err))
		require.Equal(t, "server busy", err.PublicMessage())
	})
}

func TestWrapf(t *testing.T) {
	require.Nil(t, apperrors.Wrapf(nil, "ignored"))

	err := apperrors.Wrapf(apperrors.ErrInvalidGrant, "exchange %s", "code")
	require.EqualError(t, err, "exchange code: invalid grant")
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidGrant))
}
