package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is the in-process catalog store used by tests and
// database-free deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	books map[string]Book
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{books: make(map[string]Book)}
}

func (s *MemoryStore) Add(ctx context.Context, b Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.books[b.ID]; taken {
		return fmt.Errorf("book %s: %w", b.ID, ErrDuplicate)
	}
	s.books[b.ID] = b
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[id]
	if !ok {
		return Book{}, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	return b, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Book, 0, len(s.books))
	for _, b := range s.books {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	b.Status = status
	s.books[id] = b
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.books[id]
	return ok, nil
}

func (s *MemoryStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	delete(s.books, id)
	return nil
}
