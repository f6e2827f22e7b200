package authflow

import (
	"context"
	"errors"
	"sync"
	"time"
)

type storedFlow struct {
	flow      PendingFlow
	expiresAt time.Time
}

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu      sync.Mutex
	flows   map[string]storedFlow
	nowTime func() time.Time
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory pending flow repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		flows:   make(map[string]storedFlow),
		nowTime: time.Now,
	}
}

func (r *InMemoryRepo) Save(_ context.Context, flowID string, flow *PendingFlow, ttl time.Duration) error {
	if flowID == "" {
		return errors.New("flow id cannot be empty")
	}
	if flow == nil {
		return errors.New("flow cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.flows[flowID] = storedFlow{flow: *flow, expiresAt: r.nowTime().Add(ttl)}
	return nil
}

func (r *InMemoryRepo) Take(_ context.Context, flowID string) (*PendingFlow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.flows[flowID]
	delete(r.flows, flowID)
	if !exists || !r.nowTime().Before(stored.expiresAt) {
		return nil, ErrFlowNotFound
	}

	flow := stored.flow
	return &flow, nil
}

// Cleanup removes flows whose user never came back.
func (r *InMemoryRepo) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowTime()
	for id, stored := range r.flows {
		if !now.Before(stored.expiresAt) {
			delete(r.flows, id)
		}
	}
}
