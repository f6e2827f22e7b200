package authflow_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-notes-mcp/authflow"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func testFlow() *authflow.PendingFlow {
	return &authflow.PendingFlow{
		ClientID:            "client-1",
		RedirectURI:         "http://localhost:3000/callback",
		Scope:               "read write",
		State:               "client-state",
		CodeChallenge:       "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		CodeChallengeMethod: "S256",
	}
}

func TestRepos(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	repos := map[string]authflow.Repo{
		"memory": authflow.NewInMemoryRepo(),
		"redis":  authflow.NewRedisRepo(rc, "test:"),
	}

	for name, repo := range repos {
		t.Run(name, func(t *testing.T) {
			id := authflow.NewFlowID()
			require.NoError(t, repo.Save(ctx, id, testFlow(), time.Minute))

			flow, err := repo.Take(ctx, id)
			require.NoError(t, err)
			require.Equal(t, "client-state", flow.State)
			require.Equal(t, "client-1", flow.ClientID)

			_, err = repo.Take(ctx, id)
			require.ErrorIs(t, err, authflow.ErrFlowNotFound)

			_, err = repo.Take(ctx, "unknown")
			require.ErrorIs(t, err, authflow.ErrFlowNotFound)
		})
	}

	t.Run("redis flows expire", func(t *testing.T) {
		repo := authflow.NewRedisRepo(rc, "test:")
		id := authflow.NewFlowID()
		require.NoError(t, repo.Save(ctx, id, testFlow(), time.Minute))

		mr.FastForward(2 * time.Minute)
		_, err := repo.Take(ctx, id)
		require.ErrorIs(t, err, authflow.ErrFlowNotFound)
	})
}

func TestStateSealer(t *testing.T) {
	sealer, err := authflow.NewStateSealer(testKey, "http://localhost:8080", 10*time.Minute)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		state, err := sealer.Seal("flow-1")
		require.NoError(t, err)

		id, err := sealer.Open(state)
		require.NoError(t, err)
		require.Equal(t, "flow-1", id)
	})

	t.Run("tampered state", func(t *testing.T) {
		state, err := sealer.Seal("flow-1")
		require.NoError(t, err)

		parts := strings.Split(state, ".")
		parts[2] = strings.Repeat("A", len(parts[2]))
		_, err = sealer.Open(strings.Join(parts, "."))
		require.ErrorIs(t, err, authflow.ErrInvalidState)
	})

	t.Run("other key", func(t *testing.T) {
		other, err := authflow.NewStateSealer([]byte("fedcba9876543210fedcba9876543210"), "http://localhost:8080", time.Minute)
		require.NoError(t, err)
		state, err := other.Seal("flow-1")
		require.NoError(t, err)

		_, err = sealer.Open(state)
		require.ErrorIs(t, err, authflow.ErrInvalidState)
	})

	t.Run("expired state", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		authflow.NowTimeFunc = func() time.Time { return past }
		state, err := sealer.Seal("flow-1")
		authflow.NowTimeFunc = time.Now
		require.NoError(t, err)

		_, err = sealer.Open(state)
		require.ErrorIs(t, err, authflow.ErrInvalidState)
	})

	t.Run("empty state", func(t *testing.T) {
		_, err := sealer.Open("")
		require.ErrorIs(t, err, authflow.ErrInvalidState)
	})

	t.Run("short key", func(t *testing.T) {
		_, err := authflow.NewStateSealer([]byte("short"), "x", time.Minute)
		require.Error(t, err)
	})
}
