package request

import (
	"context"
	"sort"
	"sync"

	"reliefhub/internal/request/models"
	id "reliefhub/pkg/domain"
	"reliefhub/pkg/platform/sentinel"
)

// InMemory is the development and test implementation of the request store.
//
// Execute is the atomic validate-then-mutate primitive: the store lock is
// held across both callbacks, so concurrent mutations of the same aggregate
// serialize. The ledger's in-memory store funnels its increments through it.
type InMemory struct {
	mu       sync.RWMutex
	requests map[id.RequestID]*models.FundingRequest
}

func NewInMemory() *InMemory {
	return &InMemory{requests: make(map[id.RequestID]*models.FundingRequest)}
}

func (s *InMemory) Create(_ context.Context, r *models.FundingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[r.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *r
	s.requests[r.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, requestID id.RequestID) (*models.FundingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

// List returns all requests newest first.
func (s *InMemory) List(_ context.Context) ([]*models.FundingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.FundingRequest, 0, len(s.requests))
	for _, r := range s.requests {
		clone := *r
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Execute atomically runs validate then mutate on the stored aggregate while
// holding the store lock. Returns a copy of the mutated aggregate.
func (s *InMemory) Execute(_ context.Context, requestID id.RequestID,
	validate func(*models.FundingRequest) error,
	mutate func(*models.FundingRequest),
) (*models.FundingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if validate != nil {
		if err := validate(r); err != nil {
			return nil, err
		}
	}
	mutate(r)
	clone := *r
	return &clone, nil
}

func (s *InMemory) Delete(_ context.Context, requestID id.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[requestID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.requests, requestID)
	return nil
}
