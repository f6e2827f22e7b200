package server

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-notes-mcp/auth"
	"github.com/jrsteele09/go-notes-mcp/authflow"
	"github.com/jrsteele09/go-notes-mcp/clients"
	"github.com/jrsteele09/go-notes-mcp/identity"
	"github.com/jrsteele09/go-notes-mcp/internal/config"
	"github.com/jrsteele09/go-notes-mcp/internal/rediskv"
	"github.com/jrsteele09/go-notes-mcp/internal/utils"
	"github.com/jrsteele09/go-notes-mcp/quota"
	"github.com/jrsteele09/go-notes-mcp/ratelimit"
	"github.com/jrsteele09/go-notes-mcp/session"
	"github.com/jrsteele09/go-notes-mcp/storage"
	"github.com/jrsteele09/go-notes-mcp/token"
	"github.com/jrsteele09/go-notes-mcp/tools"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Stores are the backends selected by STORE_BACKEND. Notes always live in
// the object store; everything the authorization server and the rate
// limiter keep can be shared through Redis.
type Stores struct {
	Clients clients.Repo
	Codes   token.CodeRepo
	Tokens  token.AccessTokenRepo
	Flows   authflow.Repo
	Limiter ratelimit.Limiter
	Objects storage.Store

	redis    *redis.Client
	sweepers []func()
}

func NewStores(ctx context.Context, cfg config.Config) (*Stores, error) {
	switch cfg.GetStoreBackend() {
	case config.StoreBackendMemory:
		return NewMemoryStores(cfg), nil
	case config.StoreBackendRedis:
		client, err := rediskv.NewClient(ctx, cfg)
		if err != nil {
			return nil, errors.Wrap(err, "[server.NewStores] redis")
		}
		return NewRedisStores(client, cfg), nil
	default:
		return nil, fmt.Errorf("[server.NewStores] unknown store backend %q", cfg.GetStoreBackend())
	}
}

func NewMemoryStores(cfg config.LimitsConfig) *Stores {
	codes := token.NewInMemoryCodeRepo()
	tokens := token.NewInMemoryAccessTokenRepo()
	flows := authflow.NewInMemoryRepo()
	limiter := ratelimit.NewMemoryLimiter(rateLimitConfig(cfg))

	return &Stores{
		Clients: clients.NewInMemoryRepo(),
		Codes:   codes,
		Tokens:  tokens,
		Flows:   flows,
		Limiter: limiter,
		Objects: objectStore(cfg),
		sweepers: []func(){
			codes.Cleanup,
			tokens.Cleanup,
			flows.Cleanup,
			func() { limiter.Cleanup() },
		},
	}
}

// NewRedisStores keeps codes, tokens, pending flows, clients and rate limit
// counters in Redis so several instances can serve one deployment.
func NewRedisStores(client *redis.Client, cfg config.Config) *Stores {
	prefix := cfg.GetRedisKeyPrefix()
	return &Stores{
		Clients: clients.NewRedisRepo(client, prefix),
		Codes:   token.NewRedisCodeRepo(client, prefix),
		Tokens:  token.NewRedisAccessTokenRepo(client, prefix),
		Flows:   authflow.NewRedisRepo(client, prefix),
		Limiter: ratelimit.NewRedisLimiter(client, prefix, rateLimitConfig(cfg)),
		Objects: objectStore(cfg),
		redis:   client,
	}
}

// Sweep drops expired entries from the in-memory stores. Redis expires its
// keys itself.
func (s *Stores) Sweep() {
	for _, sweep := range s.sweepers {
		sweep()
	}
}

func (s *Stores) Close() error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Close()
}

func rateLimitConfig(cfg config.LimitsConfig) ratelimit.Config {
	return ratelimit.Config{
		MaxRequests: cfg.GetRateLimitRequests(),
		Window:      cfg.GetRateLimitWindow(),
	}
}

func objectStore(cfg config.LimitsConfig) storage.Store {
	return storage.NewMemoryStore(storage.Limits{
		MaxBytes: cfg.GetMaxStorageBytes(),
		MaxFiles: cfg.GetMaxStorageFiles(),
	})
}

// App is the assembled server with the pieces needed to run and stop it.
type App struct {
	Server   *Server
	Sessions *session.Manager
	Stores   *Stores
}

// NewApp wires every service over stores. bridgeOptions are passed to the
// identity bridge.
func NewApp(ctx context.Context, cfg config.Config, stores *Stores, version string, bridgeOptions ...identity.BridgeOption) (*App, error) {
	if stores == nil {
		return nil, errors.New("[server.NewApp] stores are required")
	}
	baseURL := cfg.GetBaseURL()

	bridge, err := identity.NewBridge(ctx, cfg, baseURL+RouteCallback, identity.NewAllowlist(cfg.GetAllowedUsers()), bridgeOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "[server.NewApp] identity bridge")
	}

	key, err := stateSigningKey(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "[server.NewApp] state signing key")
	}
	sealer, err := authflow.NewStateSealer(key, baseURL, cfg.GetPendingFlowTimeout())
	if err != nil {
		return nil, errors.Wrap(err, "[server.NewApp] state sealer")
	}

	tokens, err := token.NewManager(stores.Codes, stores.Tokens,
		token.WithCodeTTL(cfg.GetAuthCodeTimeout()),
		token.WithAccessTokenExpiry(cfg.GetDefaultAccessTokenExpiry()),
		token.WithSecretLength(cfg.GetAccessTokenLength()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[server.NewApp] token manager")
	}

	authService, err := auth.NewAuthorizationService(
		auth.Repos{Clients: stores.Clients, Flows: stores.Flows},
		tokens, bridge, sealer, cfg,
	)
	if err != nil {
		return nil, errors.Wrap(err, "[server.NewApp] authorization service")
	}

	dispatcher, err := tools.NewDispatcher(stores.Objects)
	if err != nil {
		return nil, errors.Wrap(err, "[server.NewApp] tool dispatcher")
	}
	handler, err := session.NewMCPHandler(dispatcher, cfg.GetAppName(), version)
	if err != nil {
		return nil, errors.Wrap(err, "[server.NewApp] mcp handler")
	}
	enforcer, err := quota.NewEnforcer(stores.Objects)
	if err != nil {
		return nil, errors.Wrap(err, "[server.NewApp] quota enforcer")
	}

	sessions, err := session.NewManager(stores.Limiter, handler,
		session.WithTimeout(cfg.GetSessionTimeout()),
		session.WithMaxSessions(cfg.GetMaxSessions()),
		session.WithQuota(enforcer),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[server.NewApp] session manager")
	}

	srv, err := New(cfg, authService, sessions)
	if err != nil {
		return nil, err
	}

	return &App{Server: srv, Sessions: sessions, Stores: stores}, nil
}

// RunJanitor sweeps expired in-memory state until ctx is done.
func (a *App) RunJanitor(ctx context.Context, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.Stores.Sweep()
			if n := a.Server.CleanupRegistrationLimiter(time.Hour); n > 0 {
				log.Debug().Int("removed", n).Msg("registration limiter swept")
			}
		}
	}
}

// stateSigningKey returns the configured key, or a random one when none is
// set. A random key invalidates in-flight sign-ins on restart and cannot be
// shared between instances.
func stateSigningKey(cfg config.OAuthConfig) ([]byte, error) {
	if key := cfg.GetStateSigningKey(); key != "" {
		return []byte(key), nil
	}
	log.Warn().Msg("STATE_SIGNING_KEY is not set, using a random key")
	key, err := utils.RandomString(32)
	if err != nil {
		return nil, err
	}
	return []byte(key), nil
}
