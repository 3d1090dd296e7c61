package user

import (
	"context"
	"strings"
	"sync"

	"reliefhub/internal/auth/models"
	id "reliefhub/pkg/domain"
	"reliefhub/pkg/platform/sentinel"
)

// InMemory is the development and test implementation of the user store.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[id.UserID]*models.User
	byEmail map[string]id.UserID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[id.UserID]*models.User),
		byEmail: make(map[string]id.UserID),
	}
}

// CreateIfEmailAvailable inserts the user unless the email is taken.
// Email uniqueness is case-insensitive.
func (s *InMemory) CreateIfEmailAvailable(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Email)
	if _, taken := s.byEmail[key]; taken {
		return sentinel.ErrAlreadyUsed
	}
	clone := *u
	s.byID[u.ID] = &clone
	s.byEmail[key] = u.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.byID[userID]
	return &clone, nil
}

// FindByIDs resolves a batch of users; missing IDs are skipped.
func (s *InMemory) FindByIDs(_ context.Context, ids []id.UserID) (map[id.UserID]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[id.UserID]*models.User, len(ids))
	for _, userID := range ids {
		if u, ok := s.byID[userID]; ok {
			clone := *u
			found[userID] = &clone
		}
	}
	return found, nil
}
