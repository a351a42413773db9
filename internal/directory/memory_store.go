package directory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/therapylink/clinic-scheduling/internal/identity"
)

// MemoryStore backs demo mode and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[uuid.UUID]User)}
}

func (s *MemoryStore) Put(u User) {
	s.mu.Lock()
	s.items[u.ID] = u
	s.mu.Unlock()
}

func (s *MemoryStore) GetUser(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.items[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (s *MemoryStore) ListAdmins(_ context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []User
	for _, u := range s.items {
		if u.Role == identity.RoleAdmin {
			result = append(result, u)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *MemoryStore) SetApproved(_ context.Context, id uuid.UUID, approved bool) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.items[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.Approved = approved
	s.items[id] = u
	return &u, nil
}
