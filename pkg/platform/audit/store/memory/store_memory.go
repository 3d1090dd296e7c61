package memory

import (
	"context"
	"sync"

	id "reliefhub/pkg/domain"
	audit "reliefhub/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.UserID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.UserID][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.UserID][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.UserID] = append(s.events[event.UserID], event)
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[userID]...), nil
}

// ListRecent returns up to limit of the most recently appended events across
// all users (admin-only operation).
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []audit.Event
	for _, userEvents := range s.events {
		all = append(all, userEvents...)
	}

	start := len(all) - limit
	if start < 0 {
		start = 0
	}
	return all[start:], nil
}
