package token

import (
	"context"
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

type memoryMap[T any] struct {
	mu      sync.Mutex
	items   map[string]entry[T]
	nowTime func() time.Time
}

func newMemoryMap[T any]() *memoryMap[T] {
	return &memoryMap[T]{items: make(map[string]entry[T]), nowTime: time.Now}
}

func (m *memoryMap[T]) save(key string, value T, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = entry[T]{value: value, expiresAt: m.nowTime().Add(ttl)}
}

func (m *memoryMap[T]) get(key string, remove bool) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if remove {
		delete(m.items, key)
	}
	if !ok || !m.nowTime().Before(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

func (m *memoryMap[T]) delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

func (m *memoryMap[T]) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowTime()
	for key, e := range m.items {
		if !now.Before(e.expiresAt) {
			delete(m.items, key)
		}
	}
}

// InMemoryCodeRepo is a thread-safe in-memory CodeRepo.
type InMemoryCodeRepo struct {
	codes *memoryMap[AuthorizationCode]
}

var _ CodeRepo = (*InMemoryCodeRepo)(nil)

func NewInMemoryCodeRepo() *InMemoryCodeRepo {
	return &InMemoryCodeRepo{codes: newMemoryMap[AuthorizationCode]()}
}

func (r *InMemoryCodeRepo) Save(_ context.Context, codeHash string, code *AuthorizationCode, ttl time.Duration) error {
	r.codes.save(codeHash, *code, ttl)
	return nil
}

func (r *InMemoryCodeRepo) Consume(_ context.Context, codeHash string) (*AuthorizationCode, error) {
	code, ok := r.codes.get(codeHash, true)
	if !ok {
		return nil, ErrCodeNotFound
	}
	return &code, nil
}

// Cleanup drops expired codes that were never exchanged.
func (r *InMemoryCodeRepo) Cleanup() {
	r.codes.cleanup()
}

// InMemoryAccessTokenRepo is a thread-safe in-memory AccessTokenRepo.
type InMemoryAccessTokenRepo struct {
	tokens *memoryMap[AccessToken]
}

var _ AccessTokenRepo = (*InMemoryAccessTokenRepo)(nil)

func NewInMemoryAccessTokenRepo() *InMemoryAccessTokenRepo {
	return &InMemoryAccessTokenRepo{tokens: newMemoryMap[AccessToken]()}
}

func (r *InMemoryAccessTokenRepo) Save(_ context.Context, tokenHash string, token *AccessToken, ttl time.Duration) error {
	r.tokens.save(tokenHash, *token, ttl)
	return nil
}

func (r *InMemoryAccessTokenRepo) Get(_ context.Context, tokenHash string) (*AccessToken, error) {
	t, ok := r.tokens.get(tokenHash, false)
	if !ok {
		return nil, ErrTokenNotFound
	}
	return &t, nil
}

func (r *InMemoryAccessTokenRepo) Delete(_ context.Context, tokenHash string) error {
	r.tokens.delete(tokenHash)
	return nil
}

// Cleanup drops expired tokens.
func (r *InMemoryAccessTokenRepo) Cleanup() {
	r.tokens.cleanup()
}
