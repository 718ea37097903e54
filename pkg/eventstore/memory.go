package eventstore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process ledger with the same ordering and uniqueness
// guarantees as Postgres. It backs tests and single-node deployments
// without a database.
type Memory struct {
	mu     sync.RWMutex
	nextID int64
	events []Event
	refs   map[string]struct{}
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{refs: make(map[string]struct{})}
}

// Append records the event under the write lock, assigning the next
// strictly increasing identity.
func (m *Memory) Append(ctx context.Context, e Event) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.refs[e.Ref]; taken {
		return 0, fmt.Errorf("ref %q: %w", e.Ref, ErrDuplicateRef)
	}

	m.nextID++
	e.ID = m.nextID
	e.OccurredOn = Day(e.OccurredOn)
	e.RecordedAt = time.Now().UTC()
	m.events = append(m.events, e)
	m.refs[e.Ref] = struct{}{}
	return e.ID, nil
}

// AllEvents returns a copy of the full history in append order. Readers
// always observe a consistent snapshot.
func (m *Memory) AllEvents(ctx context.Context) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out, nil
}

// EventsForBook returns the ordered sub-sequence of events for one book.
func (m *Memory) EventsForBook(ctx context.Context, bookID string) ([]Event, error) {
	return m.filter(func(e Event) bool { return e.BookID == bookID }), nil
}

// EventsForMember returns the ordered sub-sequence of events attributed to
// one member.
func (m *Memory) EventsForMember(ctx context.Context, memberID string) ([]Event, error) {
	return m.filter(func(e Event) bool { return e.MemberID == memberID }), nil
}

func (m *Memory) filter(keep func(Event) bool) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Event
	for _, e := range m.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
