package event

import (
	"context"
	"sort"
	"sync"

	"reliefhub/internal/event/models"
	id "reliefhub/pkg/domain"
	"reliefhub/pkg/platform/sentinel"
)

// InMemory is the development and test implementation of the event store.
type InMemory struct {
	mu         sync.RWMutex
	events     map[id.EventID]*models.Event
	volunteers map[id.EventID]map[id.UserID]struct{}
	comments   map[id.EventID][]*models.Comment
}

func NewInMemory() *InMemory {
	return &InMemory{
		events:     make(map[id.EventID]*models.Event),
		volunteers: make(map[id.EventID]map[id.UserID]struct{}),
		comments:   make(map[id.EventID][]*models.Comment),
	}
}

func (s *InMemory) Create(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[e.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *e
	s.events[e.ID] = &clone
	s.volunteers[e.ID] = make(map[id.UserID]struct{})
	return nil
}

func (s *InMemory) FindByID(_ context.Context, eventID id.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(eventID)
}

func (s *InMemory) List(_ context.Context) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Event, 0, len(s.events))
	for _, e := range s.events {
		clone := *e
		clone.VolunteerCount = len(s.volunteers[e.ID])
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, eventID id.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[eventID]; !exists {
		return sentinel.ErrNotFound
	}
	delete(s.events, eventID)
	delete(s.volunteers, eventID)
	delete(s.comments, eventID)
	return nil
}

// ToggleVolunteer flips the user's membership in the event's volunteer set
// and reports the resulting state.
func (s *InMemory) ToggleVolunteer(_ context.Context, eventID id.EventID, userID id.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[eventID]; !exists {
		return false, sentinel.ErrNotFound
	}
	set := s.volunteers[eventID]
	if _, in := set[userID]; in {
		delete(set, userID)
		return false, nil
	}
	set[userID] = struct{}{}
	return true, nil
}

func (s *InMemory) AddComment(_ context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[c.EventID]; !exists {
		return sentinel.ErrNotFound
	}
	clone := *c
	s.comments[c.EventID] = append(s.comments[c.EventID], &clone)
	return nil
}

// ListComments returns the event's comments oldest first (thread order).
func (s *InMemory) ListComments(_ context.Context, eventID id.EventID) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.events[eventID]; !exists {
		return nil, sentinel.ErrNotFound
	}
	out := make([]*models.Comment, 0, len(s.comments[eventID]))
	for _, c := range s.comments[eventID] {
		clone := *c
		out = append(out, &clone)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) FindComment(_ context.Context, eventID id.EventID, commentID id.CommentID) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.comments[eventID] {
		if c.ID == commentID {
			clone := *c
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) DeleteComment(_ context.Context, eventID id.EventID, commentID id.CommentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread := s.comments[eventID]
	for i, c := range thread {
		if c.ID == commentID {
			s.comments[eventID] = append(thread[:i], thread[i+1:]...)
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemory) findLocked(eventID id.EventID) (*models.Event, error) {
	e, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *e
	clone.VolunteerCount = len(s.volunteers[eventID])
	return &clone, nil
}
