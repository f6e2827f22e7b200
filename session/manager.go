package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-notes-mcp/internal/errors"
	"github.com/jrsteele09/go-notes-mcp/ratelimit"
	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout     = 30 * time.Minute
	defaultMaxSessions = 10000
)

// Manager is the session router. Actors are only ever reached through
// their id; handlers never iterate the map.
type Manager struct {
	mu     sync.RWMutex
	actors map[string]*Actor

	limiter     ratelimit.Limiter
	quota       QuotaChecker
	handler     Handler
	timeout     time.Duration
	maxSessions int
	nowFunc     func() time.Time
}

type ManagerOption func(*Manager)

// WithTimeout sets the inactivity timeout.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

func WithMaxSessions(n int) ManagerOption {
	return func(m *Manager) {
		m.maxSessions = n
	}
}

func WithQuota(q QuotaChecker) ManagerOption {
	return func(m *Manager) {
		m.quota = q
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func NewManager(limiter ratelimit.Limiter, handler Handler, options ...ManagerOption) (*Manager, error) {
	if limiter == nil {
		return nil, errors.New("[session.NewManager] limiter is required")
	}
	if handler == nil {
		return nil, errors.New("[session.NewManager] handler is required")
	}

	m := &Manager{
		actors:      make(map[string]*Actor),
		limiter:     limiter,
		handler:     handler,
		timeout:     defaultTimeout,
		maxSessions: defaultMaxSessions,
		nowFunc:     time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Create starts a new session for userID under a fresh random id.
func (m *Manager) Create(userID string) (*Actor, error) {
	if userID == "" {
		return nil, apperrors.Auth(apperrors.ErrInvalidToken, "token has no user")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.actors) >= m.maxSessions {
		return nil, apperrors.Unavailable(apperrors.ErrTooManySessions, "too many sessions, try again later")
	}

	id := uuid.NewString()
	a := newActor(actorConfig{
		id:      id,
		userID:  userID,
		timeout: m.timeout,
		limiter: m.limiter,
		quota:   m.quota,
		handler: m.handler,
		nowFunc: m.nowFunc,
		onExit:  m.remove,
	})
	m.actors[id] = a

	log.Debug().Str("session", shortID(id)).Str("userID", userID).Msg("session created")
	return a, nil
}

// Lookup returns the live session with the given id. Unknown, expired and
// foreign sessions are all reported as not found.
func (m *Manager) Lookup(sessionID, userID string) (*Actor, error) {
	if sessionID == "" {
		return nil, apperrors.MissingSessionID()
	}

	m.mu.RLock()
	a, ok := m.actors[sessionID]
	m.mu.RUnlock()

	if !ok || a.State() == StateExpired || a.userID != userID {
		return nil, apperrors.SessionNotFound()
	}
	return a, nil
}

// Close expires a session on behalf of its owner.
func (m *Manager) Close(sessionID, userID string) error {
	a, err := m.Lookup(sessionID, userID)
	if err != nil {
		return err
	}
	a.Close()
	<-a.Done()
	return nil
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.actors)
}

// Shutdown closes every session and waits for them to finish.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	actors := make([]*Actor, 0, len(m.actors))
	for _, a := range m.actors {
		actors = append(actors, a)
	}
	m.mu.RUnlock()

	for _, a := range actors {
		a.Close()
	}
	for _, a := range actors {
		<-a.Done()
	}
}

func (m *Manager) remove(a *Actor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.actors[a.id] == a {
		delete(m.actors, a.id)
	}
}
