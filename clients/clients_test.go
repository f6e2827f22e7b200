package clients_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-notes-mcp/clients"
	"github.com/jrsteele09/go-notes-mcp/oauth2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testClient() *clients.Client {
	return &clients.Client{
		ID:           "client-1",
		AuthMethod:   oauth2.AuthMethodNone,
		RedirectURIs: []string{"http://localhost:3000/callback"},
		Scopes:       []string{"read", "write"},
		CreatedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestClient(t *testing.T) {
	c := testClient()

	require.True(t, c.IsPublic())
	require.True(t, c.HasRedirectURI("http://localhost:3000/callback"))
	require.False(t, c.HasRedirectURI("http://localhost:3000/callback/"))
	require.NoError(t, c.ValidateScopes("read  write"))
	require.ErrorIs(t, c.ValidateScopes("read admin"), clients.ErrInvalidScope)
	require.False(t, c.VerifySecret("anything"))

	t.Run("confidential client secret", func(t *testing.T) {
		hash, err := clients.HashSecret("s3cret")
		require.NoError(t, err)

		c := testClient()
		c.AuthMethod = oauth2.AuthMethodClientSecretPost
		c.SecretHash = hash

		require.False(t, c.IsPublic())
		require.True(t, c.VerifySecret("s3cret"))
		require.False(t, c.VerifySecret("wrong"))
		require.False(t, c.VerifySecret(""))
	})
}

func TestRepos(t *testing.T) {
	ctx := context.Background()

	repos := map[string]func(t *testing.T) clients.Repo{
		"memory": func(t *testing.T) clients.Repo {
			return clients.NewInMemoryRepo()
		},
		"redis": func(t *testing.T) clients.Repo {
			mr := miniredis.RunT(t)
			rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rc.Close() })
			return clients.NewRedisRepo(rc, "test:")
		},
	}

	for name, newRepo := range repos {
		t.Run(name, func(t *testing.T) {
			repo := newRepo(t)

			_, err := repo.Get(ctx, "client-1")
			require.ErrorIs(t, err, clients.ErrNotFound)

			require.NoError(t, repo.Create(ctx, testClient()))
			require.ErrorIs(t, repo.Create(ctx, testClient()), clients.ErrClientExists)

			got, err := repo.Get(ctx, "client-1")
			require.NoError(t, err)
			require.Equal(t, testClient(), got)
		})
	}
}
