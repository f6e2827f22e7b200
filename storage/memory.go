package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type object struct {
	data     []byte
	modified time.Time
}

// MemoryStore is a thread-safe in-memory Store.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]map[string]object // userID -> path -> object
	limits  Limits
	nowTime func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(limits Limits) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]map[string]object),
		limits:  limits,
		nowTime: time.Now,
	}
}

func (s *MemoryStore) Limits() Limits {
	return s.limits
}

func (s *MemoryStore) Get(_ context.Context, userID, objectPath string) ([]byte, error) {
	p, err := CleanPath(objectPath)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[userID][p]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), obj.data...), nil
}

func (s *MemoryStore) Stat(_ context.Context, userID, objectPath string) (ObjectInfo, error) {
	p, err := CleanPath(objectPath)
	if err != nil {
		return ObjectInfo{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[userID][p]
	if !ok {
		return ObjectInfo{}, ErrNotFound
	}
	return ObjectInfo{Path: p, Size: int64(len(obj.data)), Modified: obj.modified}, nil
}

func (s *MemoryStore) Put(_ context.Context, userID, objectPath string, data []byte) error {
	p, err := CleanPath(objectPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userObjects, ok := s.objects[userID]
	if !ok {
		userObjects = make(map[string]object)
		s.objects[userID] = userObjects
	}
	userObjects[p] = object{data: append([]byte(nil), data...), modified: s.nowTime()}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID, objectPath string) error {
	p, err := CleanPath(objectPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[userID][p]; !ok {
		return ErrNotFound
	}
	delete(s.objects[userID], p)
	return nil
}

// List returns the user's objects whose path starts with prefix, sorted by path.
func (s *MemoryStore) List(_ context.Context, userID, prefix string) ([]ObjectInfo, error) {
	prefix = strings.TrimPrefix(prefix, "/")

	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]ObjectInfo, 0, len(s.objects[userID]))
	for p, obj := range s.objects[userID] {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		infos = append(infos, ObjectInfo{Path: p, Size: int64(len(obj.data)), Modified: obj.modified})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Path < infos[j].Path
	})
	return infos, nil
}

func (s *MemoryStore) Quota(_ context.Context, userID string) (QuotaSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snapshot QuotaSnapshot
	for _, obj := range s.objects[userID] {
		snapshot.TotalBytes += int64(len(obj.data))
		snapshot.TotalFiles++
	}
	snapshot.WithinQuota = s.limits.Within(snapshot.TotalBytes, snapshot.TotalFiles)
	return snapshot, nil
}
