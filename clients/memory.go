package clients

import (
	"context"
	"errors"
	"sync"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of Repo
type InMemoryRepo struct {
	clients map[string]*Client
	lock    sync.RWMutex
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		clients: make(map[string]*Client),
	}
}

func (r *InMemoryRepo) Create(_ context.Context, client *Client) error {
	if client == nil || client.ID == "" {
		return errors.New("client id cannot be empty")
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.clients[client.ID]; ok {
		return ErrClientExists
	}
	r.clients[client.ID] = client.clone()
	return nil
}

func (r *InMemoryRepo) Get(_ context.Context, clientID string) (*Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	client, ok := r.clients[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	return client.clone(), nil
}
