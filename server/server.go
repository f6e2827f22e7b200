package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-notes-mcp/auth"
	"github.com/jrsteele09/go-notes-mcp/internal/config"
	"github.com/jrsteele09/go-notes-mcp/ratelimit"
	"github.com/jrsteele09/go-notes-mcp/session"
	"github.com/rs/zerolog/log"
)

const defaultKeepAliveInterval = 25 * time.Second

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	baseURL  string
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	auth     *auth.AuthorizationService
	sessions *session.Manager

	registrationLimiter *ratelimit.KeyedLimiter
	keepAliveInterval   time.Duration
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithKeepAliveInterval overrides the comment interval on GET /mcp streams.
func WithKeepAliveInterval(d time.Duration) Option {
	return func(s *Server) {
		s.keepAliveInterval = d
	}
}

func New(cfg config.Config, authService *auth.AuthorizationService, sessions *session.Manager, options ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[Server New] config is required")
	}
	if authService == nil {
		return nil, errors.New("[Server New] authorization service is required")
	}
	if sessions == nil {
		return nil, errors.New("[Server New] session manager is required")
	}

	every, burst := cfg.GetRegistrationRateLimit()
	s := &Server{
		env:                 cfg.GetEnv(),
		baseURL:             cfg.GetBaseURL(),
		mux:                 http.NewServeMux(),
		config:              cfg,
		auth:                authService,
		sessions:            sessions,
		registrationLimiter: ratelimit.NewKeyedLimiter(every, burst),
		keepAliveInterval:   cfg.GetKeepAliveInterval(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.keepAliveInterval <= 0 {
		s.keepAliveInterval = defaultKeepAliveInterval
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// CleanupRegistrationLimiter drops per-address buckets that have been idle
// for longer than maxIdle.
func (s *Server) CleanupRegistrationLimiter(maxIdle time.Duration) int {
	return s.registrationLimiter.Cleanup(maxIdle)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Debug().Msgf("[%s] %s", colouredMethod(parts[0]), parts[1])
		} else {
			log.Debug().Msgf("[%s] %s", colouredMethod(""), parts[0])
		}
	}
}

// remoteAddr is the key used to throttle unauthenticated endpoints.
func remoteAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host
}
