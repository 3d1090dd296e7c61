package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"reliefhub/internal/auth/models"
	id "reliefhub/pkg/domain"
	"reliefhub/pkg/platform/sentinel"
)

type UserStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *UserStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestUserStoreSuite(t *testing.T) {
	suite.Run(t, new(UserStoreSuite))
}

func (s *UserStoreSuite) newUser(email string) *models.User {
	u, err := models.NewUser(id.NewUserID(), "Alex Donor", email, "bcrypt-hash", time.Now())
	s.Require().NoError(err)
	return u
}

func (s *UserStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds user by ID and email", func() {
		u := s.newUser("alex@example.org")
		s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, u))

		found, err := s.store.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal(u.Email, found.Email)

		found, err = s.store.FindByEmail(s.ctx, "alex@example.org")
		s.Require().NoError(err)
		s.Equal(u.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.NewUserID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *UserStoreSuite) TestEmailUniqueness() {
	s.Run("rejects duplicate email", func() {
		s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, s.newUser("dup@example.org")))

		err := s.store.CreateIfEmailAvailable(s.ctx, s.newUser("dup@example.org"))
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("enforces case-insensitive uniqueness", func() {
		s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, s.newUser("case@example.org")))

		u2 := s.newUser("other@example.org")
		u2.Email = "CASE@example.org"
		err := s.store.CreateIfEmailAvailable(s.ctx, u2)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})
}

func (s *UserStoreSuite) TestFindByIDs() {
	u1 := s.newUser("one@example.org")
	u2 := s.newUser("two@example.org")
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, u1))
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, u2))

	found, err := s.store.FindByIDs(s.ctx, []id.UserID{u1.ID, u2.ID, id.NewUserID()})
	s.Require().NoError(err)
	s.Len(found, 2, "unknown IDs are skipped, not errors")
	s.Equal("one@example.org", found[u1.ID].Email)
}
