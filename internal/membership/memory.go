package membership

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is the in-process member store used by tests.
type MemoryStore struct {
	mu      sync.RWMutex
	members map[string]Member
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{members: make(map[string]Member)}
}

func (s *MemoryStore) Add(ctx context.Context, m Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.members[m.ID]; taken {
		return fmt.Errorf("member %s: %w", m.ID, ErrDuplicate)
	}
	s.members[m.ID] = m
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[id]
	if !ok {
		return Member{}, fmt.Errorf("member %s: %w", id, ErrNotFound)
	}
	return m, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.members[id]
	return ok, nil
}

func (s *MemoryStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[id]; !ok {
		return fmt.Errorf("member %s: %w", id, ErrNotFound)
	}
	delete(s.members, id)
	return nil
}
