package token_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-notes-mcp/token"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type repos struct {
	codes  token.CodeRepo
	tokens token.AccessTokenRepo
}

func allRepos(t *testing.T) map[string]repos {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	return map[string]repos{
		"memory": {codes: token.NewInMemoryCodeRepo(), tokens: token.NewInMemoryAccessTokenRepo()},
		"redis":  {codes: token.NewRedisCodeRepo(rc, "test:"), tokens: token.NewRedisAccessTokenRepo(rc, "test:")},
	}
}

func testGrant() token.AuthorizationCode {
	return token.AuthorizationCode{
		ClientID:            "client-1",
		RedirectURI:         "http://localhost:3000/callback",
		Scope:               "read write",
		CodeChallenge:       "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		CodeChallengeMethod: "S256",
		UserID:              "github:42",
	}
}

func TestManager(t *testing.T) {
	ctx := context.Background()

	for name, r := range allRepos(t) {
		t.Run(name, func(t *testing.T) {
			m, err := token.NewManager(r.codes, r.tokens)
			require.NoError(t, err)

			t.Run("code is consumed exactly once", func(t *testing.T) {
				raw, err := m.IssueCode(ctx, testGrant())
				require.NoError(t, err)

				code, err := m.ConsumeCode(ctx, raw)
				require.NoError(t, err)
				require.Equal(t, "github:42", code.UserID)

				_, err = m.ConsumeCode(ctx, raw)
				require.ErrorIs(t, err, token.ErrCodeNotFound)
			})

			t.Run("concurrent consumers see one success", func(t *testing.T) {
				raw, err := m.IssueCode(ctx, testGrant())
				require.NoError(t, err)

				var successes atomic.Int32
				var wg sync.WaitGroup
				for i := 0; i < 20; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						if _, err := m.ConsumeCode(ctx, raw); err == nil {
							successes.Add(1)
						}
					}()
				}
				wg.Wait()
				require.Equal(t, int32(1), successes.Load())
			})

			t.Run("access token round trip and revoke", func(t *testing.T) {
				grant := testGrant()
				raw, issued, err := m.IssueAccessToken(ctx, &grant)
				require.NoError(t, err)
				require.Equal(t, "read write", issued.Scope)

				got, err := m.Validate(ctx, raw)
				require.NoError(t, err)
				require.Equal(t, "github:42", got.UserID)

				_, err = m.Validate(ctx, raw+"x")
				require.ErrorIs(t, err, token.ErrTokenNotFound)

				require.NoError(t, m.Revoke(ctx, raw))
				_, err = m.Validate(ctx, raw)
				require.ErrorIs(t, err, token.ErrTokenNotFound)
			})
		})
	}
}

func TestManagerExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}

	m, err := token.NewManager(token.NewInMemoryCodeRepo(), token.NewInMemoryAccessTokenRepo(),
		token.WithNowFunc(clock.Now),
		token.WithCodeTTL(10*time.Minute),
		token.WithAccessTokenExpiry(time.Hour))
	require.NoError(t, err)

	raw, err := m.IssueCode(ctx, testGrant())
	require.NoError(t, err)

	grant := testGrant()
	tokenRaw, _, err := m.IssueAccessToken(ctx, &grant)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	_, err = m.ConsumeCode(ctx, raw)
	require.ErrorIs(t, err, token.ErrCodeExpired)

	clock.Advance(50 * time.Minute)
	_, err = m.Validate(ctx, tokenRaw)
	require.ErrorIs(t, err, token.ErrTokenExpired)
}

func TestNewManagerRequiresRepos(t *testing.T) {
	_, err := token.NewManager(nil, token.NewInMemoryAccessTokenRepo())
	require.Error(t, err)
	_, err = token.NewManager(token.NewInMemoryCodeRepo(), nil)
	require.Error(t, err)
}
