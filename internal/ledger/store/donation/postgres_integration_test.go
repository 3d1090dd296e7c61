//go:build integration

package donation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"reliefhub/internal/ledger/models"
	id "reliefhub/pkg/domain"
	"reliefhub/pkg/platform/sentinel"
	"reliefhub/pkg/testutil/containers"
)

type PostgresDonationSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
	ctx   context.Context

	requestID id.RequestID
	donorID   id.UserID
}

func (s *PostgresDonationSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.pg.Pool)
	s.ctx = context.Background()
}

func (s *PostgresDonationSuite) TearDownSuite() {
	s.pg.Pool.Close()
	_ = s.pg.Container.Terminate(context.Background())
}

func (s *PostgresDonationSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(s.ctx))

	s.donorID = s.insertUser("Donor One")
	s.requestID = s.insertRequest(s.insertUser("Request Owner"), "Levee repair fund")
}

func TestPostgresDonationSuite(t *testing.T) {
	suite.Run(t, new(PostgresDonationSuite))
}

func (s *PostgresDonationSuite) insertUser(name string) id.UserID {
	userID := id.NewUserID()
	_, err := s.pg.Pool.Exec(s.ctx, `
INSERT INTO users (id, name, email, password_hash, created_at)
VALUES ($1, $2, $3, 'x', now());
`, uuid.UUID(userID), name, fmt.Sprintf("%s@example.com", uuid.UUID(userID)))
	s.Require().NoError(err)
	return userID
}

func (s *PostgresDonationSuite) insertRequest(creatorID id.UserID, title string) id.RequestID {
	requestID := id.NewRequestID()
	_, err := s.pg.Pool.Exec(s.ctx, `
INSERT INTO funding_requests (id, title, description, creator_id, goal, status, created_at, updated_at)
VALUES ($1, $2, '', $3, 100000000, 'active', now(), now());
`, uuid.UUID(requestID), title, uuid.UUID(creatorID))
	s.Require().NoError(err)
	return requestID
}

func (s *PostgresDonationSuite) newDonation(amount int64, ref string) *models.Donation {
	d, err := models.NewDonation(id.NewDonationID(), s.requestID, s.donorID, amount, ref, time.Now().UTC())
	s.Require().NoError(err)
	return d
}

func (s *PostgresDonationSuite) sumAmounts() int64 {
	var sum int64
	err := s.pg.Pool.QueryRow(s.ctx, `
SELECT COALESCE(sum(amount), 0) FROM donations WHERE request_id = $1;
`, uuid.UUID(s.requestID)).Scan(&sum)
	s.Require().NoError(err)
	return sum
}

func (s *PostgresDonationSuite) TestApplyDonation() {
	agg, applied, err := s.store.ApplyDonation(s.ctx, s.newDonation(2500, "pi_first"))
	s.Require().NoError(err)
	s.True(applied)
	s.Equal(int64(2500), agg.DonationReceived)
	s.Equal(int64(1), agg.DonationNumber)
}

func (s *PostgresDonationSuite) TestReplayLeavesLedgerUntouched() {
	_, applied, err := s.store.ApplyDonation(s.ctx, s.newDonation(2500, "pi_replay"))
	s.Require().NoError(err)
	s.True(applied)

	agg, applied, err := s.store.ApplyDonation(s.ctx, s.newDonation(2500, "pi_replay"))
	s.Require().NoError(err)
	s.False(applied)
	s.Equal(int64(2500), agg.DonationReceived)
	s.Equal(int64(1), agg.DonationNumber)
	s.Equal(int64(2500), s.sumAmounts())
}

func (s *PostgresDonationSuite) TestMissingRequestLeavesNoRecord() {
	d, err := models.NewDonation(id.NewDonationID(), id.NewRequestID(), s.donorID, 1000, "pi_ghost", time.Now().UTC())
	s.Require().NoError(err)

	_, _, err = s.store.ApplyDonation(s.ctx, d)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	// The reference stays free for a later correct submission.
	_, applied, err := s.store.ApplyDonation(s.ctx, s.newDonation(1000, "pi_ghost"))
	s.Require().NoError(err)
	s.True(applied)
}

func (s *PostgresDonationSuite) TestConcurrentDistinctRefs() {
	const n = 25
	g, ctx := errgroup.WithContext(s.ctx)
	for i := 0; i < n; i++ {
		d := s.newDonation(100, fmt.Sprintf("pi_conc_%03d", i))
		g.Go(func() error {
			_, _, err := s.store.ApplyDonation(ctx, d)
			return err
		})
	}
	s.Require().NoError(g.Wait())

	agg, err := s.store.findRequest(s.ctx, s.pg.Pool, s.requestID)
	s.Require().NoError(err)
	s.Equal(int64(100*n), agg.DonationReceived)
	s.Equal(int64(n), agg.DonationNumber)
	s.Equal(agg.DonationReceived, s.sumAmounts())
}

func (s *PostgresDonationSuite) TestConcurrentReplaysOfOneRef() {
	const n = 10
	applies := make(chan bool, n)
	g, ctx := errgroup.WithContext(s.ctx)
	for i := 0; i < n; i++ {
		d := s.newDonation(2500, "pi_contended")
		g.Go(func() error {
			_, applied, err := s.store.ApplyDonation(ctx, d)
			if err != nil {
				return err
			}
			applies <- applied
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	close(applies)

	var wins int
	for applied := range applies {
		if applied {
			wins++
		}
	}
	s.Equal(1, wins)
	s.Equal(int64(2500), s.sumAmounts())
}

func (s *PostgresDonationSuite) TestListRecentAndDonorCount() {
	otherDonor := s.insertUser("Donor Two")

	base := time.Now().UTC()
	for i, donor := range []id.UserID{s.donorID, s.donorID, otherDonor} {
		d, err := models.NewDonation(id.NewDonationID(), s.requestID, donor, int64(100*(i+1)), fmt.Sprintf("pi_list_%d", i), base.Add(time.Duration(i)*time.Second))
		s.Require().NoError(err)
		_, _, err = s.store.ApplyDonation(s.ctx, d)
		s.Require().NoError(err)
	}

	history, err := s.store.ListRecent(s.ctx, s.requestID, 2)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal("pi_list_2", history[0].PaymentRef)

	count, err := s.store.CountDistinctDonors(s.ctx, s.requestID)
	s.Require().NoError(err)
	s.Equal(2, count)

	_, err = s.store.ListRecent(s.ctx, id.NewRequestID(), 2)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
