package donation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"reliefhub/internal/ledger/models"
	requestmodels "reliefhub/internal/request/models"
	requeststore "reliefhub/internal/request/store/request"
	id "reliefhub/pkg/domain"
	"reliefhub/pkg/platform/sentinel"
)

type DonationStoreSuite struct {
	suite.Suite
	requests *requeststore.InMemory
	store    *InMemory
	ctx      context.Context
	request  *requestmodels.FundingRequest
}

func (s *DonationStoreSuite) SetupTest() {
	s.requests = requeststore.NewInMemory()
	s.store = NewInMemory(s.requests)
	s.ctx = context.Background()

	r, err := requestmodels.NewFundingRequest(id.NewRequestID(), id.NewUserID(), "Wildfire shelter supplies", "tents and blankets", 100_000_00, "", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.requests.Create(s.ctx, r))
	s.request = r
}

func TestDonationStoreSuite(t *testing.T) {
	suite.Run(t, new(DonationStoreSuite))
}

func (s *DonationStoreSuite) newDonation(amount int64, ref string) *models.Donation {
	d, err := models.NewDonation(id.NewDonationID(), s.request.ID, id.NewUserID(), amount, ref, time.Now())
	s.Require().NoError(err)
	return d
}

func (s *DonationStoreSuite) TestApplyDonation() {
	s.Run("first application updates totals and appends the record", func() {
		agg, applied, err := s.store.ApplyDonation(s.ctx, s.newDonation(2500, "pay_first"))
		s.Require().NoError(err)
		s.True(applied)
		s.Equal(int64(2500), agg.DonationReceived)
		s.Equal(int64(1), agg.DonationNumber)

		history, err := s.store.ListRecent(s.ctx, s.request.ID, 10)
		s.Require().NoError(err)
		s.Require().Len(history, 1)
		s.Equal("pay_first", history[0].PaymentRef)
	})

	s.Run("replayed payment ref changes nothing", func() {
		_, applied, err := s.store.ApplyDonation(s.ctx, s.newDonation(2500, "pay_replay"))
		s.Require().NoError(err)
		s.True(applied)

		agg, applied, err := s.store.ApplyDonation(s.ctx, s.newDonation(2500, "pay_replay"))
		s.Require().NoError(err)
		s.False(applied)
		s.Equal(int64(2500), agg.DonationReceived)
		s.Equal(int64(1), agg.DonationNumber)

		history, err := s.store.ListRecent(s.ctx, s.request.ID, 10)
		s.Require().NoError(err)
		s.Len(history, 1)
	})

	s.Run("distinct refs from the same donor both apply", func() {
		donor := id.NewUserID()
		for i, ref := range []string{"pay_a", "pay_b"} {
			d, err := models.NewDonation(id.NewDonationID(), s.request.ID, donor, 3000, ref, time.Now().Add(time.Duration(i)*time.Second))
			s.Require().NoError(err)
			_, applied, err := s.store.ApplyDonation(s.ctx, d)
			s.Require().NoError(err)
			s.True(applied)
		}

		agg, err := s.requests.FindByID(s.ctx, s.request.ID)
		s.Require().NoError(err)
		s.Equal(int64(6000), agg.DonationReceived)
		s.Equal(int64(2), agg.DonationNumber)

		count, err := s.store.CountDistinctDonors(s.ctx, s.request.ID)
		s.Require().NoError(err)
		s.Equal(1, count)
	})

	s.Run("missing request leaves no record behind", func() {
		d, err := models.NewDonation(id.NewDonationID(), id.NewRequestID(), id.NewUserID(), 1000, "pay_ghost", time.Now())
		s.Require().NoError(err)

		_, _, err = s.store.ApplyDonation(s.ctx, d)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		// The ref must stay unused so a later correct submission succeeds.
		d2, err := models.NewDonation(id.NewDonationID(), s.request.ID, id.NewUserID(), 1000, "pay_ghost", time.Now())
		s.Require().NoError(err)
		_, applied, err := s.store.ApplyDonation(s.ctx, d2)
		s.Require().NoError(err)
		s.True(applied)
	})
}

func (s *DonationStoreSuite) TestConservation() {
	refs := []string{"c1", "c2", "c3", "c4", "c5"}
	for i, ref := range refs {
		_, _, err := s.store.ApplyDonation(s.ctx, s.newDonation(int64(100*(i+1)), ref))
		s.Require().NoError(err)
	}
	// Replays must not break the sum.
	_, applied, err := s.store.ApplyDonation(s.ctx, s.newDonation(100, "c1"))
	s.Require().NoError(err)
	s.False(applied)

	agg, err := s.requests.FindByID(s.ctx, s.request.ID)
	s.Require().NoError(err)
	s.Equal(s.store.sumAmounts(s.request.ID), agg.DonationReceived)
	s.Equal(int64(len(refs)), agg.DonationNumber)
}

func (s *DonationStoreSuite) TestConcurrentApplies() {
	const n = 50
	g, ctx := errgroup.WithContext(s.ctx)
	for i := 0; i < n; i++ {
		d := s.newDonation(100, fmt.Sprintf("pay_%03d", i))
		g.Go(func() error {
			_, _, err := s.store.ApplyDonation(ctx, d)
			return err
		})
	}
	s.Require().NoError(g.Wait())

	agg, err := s.requests.FindByID(s.ctx, s.request.ID)
	s.Require().NoError(err)
	s.Equal(int64(100*n), agg.DonationReceived)
	s.Equal(int64(n), agg.DonationNumber)
	s.Equal(agg.DonationReceived, s.store.sumAmounts(s.request.ID))
}

func (s *DonationStoreSuite) TestConcurrentReplaysOfOneRef() {
	const n = 20
	applies := make(chan bool, n)
	g, ctx := errgroup.WithContext(s.ctx)
	for i := 0; i < n; i++ {
		d := s.newDonation(2500, "pay_contended")
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

	agg, err := s.requests.FindByID(s.ctx, s.request.ID)
	s.Require().NoError(err)
	s.Equal(int64(2500), agg.DonationReceived)
	s.Equal(int64(1), agg.DonationNumber)
}

func (s *DonationStoreSuite) TestListRecent() {
	base := time.Now()
	for i := 0; i < 5; i++ {
		d, err := models.NewDonation(id.NewDonationID(), s.request.ID, id.NewUserID(), 500, fmt.Sprintf("list_%d", i), base.Add(time.Duration(i)*time.Minute))
		s.Require().NoError(err)
		_, _, err = s.store.ApplyDonation(s.ctx, d)
		s.Require().NoError(err)
	}

	s.Run("newest first, capped at limit", func() {
		history, err := s.store.ListRecent(s.ctx, s.request.ID, 3)
		s.Require().NoError(err)
		s.Require().Len(history, 3)
		s.Equal("list_4", history[0].PaymentRef)
		s.Equal("list_2", history[2].PaymentRef)
	})

	s.Run("unknown request is not found", func() {
		_, err := s.store.ListRecent(s.ctx, id.NewRequestID(), 3)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
