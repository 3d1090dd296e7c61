package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"reliefhub/internal/ledger/models"
	donationstore "reliefhub/internal/ledger/store/donation"
	requestmodels "reliefhub/internal/request/models"
	requeststore "reliefhub/internal/request/store/request"
	id "reliefhub/pkg/domain"
	dErrors "reliefhub/pkg/domain-errors"
	audit "reliefhub/pkg/platform/audit"
)

type fakeDirectory struct {
	names map[id.UserID]string
	err   error
}

func (f *fakeDirectory) DisplayNames(_ context.Context, ids []id.UserID) (map[id.UserID]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[id.UserID]string, len(ids))
	for _, userID := range ids {
		if name, ok := f.names[userID]; ok {
			out[userID] = name
		}
	}
	return out, nil
}

type captureAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureAuditor) Emit(_ context.Context, event audit.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureAuditor) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Action)
	}
	return out
}

// failingStore simulates an unavailable backend.
type failingStore struct{}

var errBackend = errors.New("connection refused")

func (failingStore) ApplyDonation(context.Context, *models.Donation) (*requestmodels.FundingRequest, bool, error) {
	return nil, false, errBackend
}

func (failingStore) ListRecent(context.Context, id.RequestID, int) ([]*models.Donation, error) {
	return nil, errBackend
}

func (failingStore) CountDistinctDonors(context.Context, id.RequestID) (int, error) {
	return 0, errBackend
}

type LedgerServiceSuite struct {
	suite.Suite
	requests *requeststore.InMemory
	store    *donationstore.InMemory
	auditor  *captureAuditor
	svc      *Service
	ctx      context.Context
	request  *requestmodels.FundingRequest
	donor    id.UserID
}

func (s *LedgerServiceSuite) SetupTest() {
	s.requests = requeststore.NewInMemory()
	s.store = donationstore.NewInMemory(s.requests)
	s.auditor = &captureAuditor{}
	s.donor = id.NewUserID()
	s.svc = New(s.store,
		WithAuditPublisher(s.auditor),
		WithDonorDirectory(&fakeDirectory{names: map[id.UserID]string{s.donor: "Dana Chen"}}),
	)
	s.ctx = context.Background()

	r, err := requestmodels.NewFundingRequest(id.NewRequestID(), id.NewUserID(), "Earthquake response fund", "water and medicine", 50_000_00, "", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.requests.Create(s.ctx, r))
	s.request = r
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) TestRecordDonation() {
	s.Run("applies a confirmed payment once", func() {
		agg, err := s.svc.RecordDonation(s.ctx, s.request.ID, s.donor, 2500, "tok_a")
		s.Require().NoError(err)
		s.Equal(int64(2500), agg.DonationReceived)
		s.Equal(int64(1), agg.DonationNumber)
		s.Contains(s.auditor.actions(), string(audit.EventDonationRecorded))
	})

	s.Run("same token twice leaves one donation", func() {
		first, err := s.svc.RecordDonation(s.ctx, s.request.ID, s.donor, 2500, "tok_dup")
		s.Require().NoError(err)

		second, err := s.svc.RecordDonation(s.ctx, s.request.ID, s.donor, 2500, "tok_dup")
		s.Require().NoError(err)
		s.Equal(first.DonationReceived, second.DonationReceived)
		s.Equal(first.DonationNumber, second.DonationNumber)
		s.Contains(s.auditor.actions(), string(audit.EventDuplicatePayment))
	})

	s.Run("distinct tokens both apply", func() {
		_, err := s.svc.RecordDonation(s.ctx, s.request.ID, s.donor, 2500, "tok_x")
		s.Require().NoError(err)
		agg, err := s.svc.RecordDonation(s.ctx, s.request.ID, s.donor, 3000, "tok_y")
		s.Require().NoError(err)
		s.Equal(int64(5500), agg.DonationReceived)
		s.Equal(int64(2), agg.DonationNumber)
	})

	s.Run("rejects non-positive amounts before the store", func() {
		for _, amount := range []int64{0, -100} {
			_, err := s.svc.RecordDonation(s.ctx, s.request.ID, s.donor, amount, "tok_bad")
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		}
		history, err := s.svc.ListRecentDonations(s.ctx, s.request.ID, 10)
		s.Require().NoError(err)
		s.Empty(history)
	})

	s.Run("rejects a blank payment reference", func() {
		_, err := s.svc.RecordDonation(s.ctx, s.request.ID, s.donor, 2500, "   ")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown request is not found and consumes nothing", func() {
		_, err := s.svc.RecordDonation(s.ctx, id.NewRequestID(), s.donor, 2500, "tok_missing")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		// Same reference must still be usable against a real request.
		agg, err := s.svc.RecordDonation(s.ctx, s.request.ID, s.donor, 2500, "tok_missing")
		s.Require().NoError(err)
		s.Equal(int64(2500), agg.DonationReceived)
	})
}

func (s *LedgerServiceSuite) TestRecordDonationConcurrent() {
	const n = 40
	g, ctx := errgroup.WithContext(s.ctx)
	for i := 0; i < n; i++ {
		ref := fmt.Sprintf("tok_%03d", i)
		g.Go(func() error {
			_, err := s.svc.RecordDonation(ctx, s.request.ID, id.NewUserID(), 100, ref)
			return err
		})
	}
	s.Require().NoError(g.Wait())

	agg, err := s.requests.FindByID(s.ctx, s.request.ID)
	s.Require().NoError(err)
	s.Equal(int64(100*n), agg.DonationReceived)
	s.Equal(int64(n), agg.DonationNumber)
}

func (s *LedgerServiceSuite) TestListRecentDonations() {
	_, err := s.svc.RecordDonation(s.ctx, s.request.ID, s.donor, 2500, "tok_hist")
	s.Require().NoError(err)

	s.Run("resolves donor display names", func() {
		history, err := s.svc.ListRecentDonations(s.ctx, s.request.ID, 10)
		s.Require().NoError(err)
		s.Require().Len(history, 1)
		s.Equal("Dana Chen", history[0].DonorName)
		s.Equal(int64(2500), history[0].Amount)
	})

	s.Run("degrades to empty names when the directory fails", func() {
		svc := New(s.store, WithDonorDirectory(&fakeDirectory{err: errors.New("directory down")}))
		history, err := svc.ListRecentDonations(s.ctx, s.request.ID, 10)
		s.Require().NoError(err)
		s.Require().Len(history, 1)
		s.Empty(history[0].DonorName)
	})

	s.Run("unknown request is not found", func() {
		_, err := s.svc.ListRecentDonations(s.ctx, id.NewRequestID(), 10)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *LedgerServiceSuite) TestStoreFailureIsRetryable() {
	svc := New(failingStore{})

	_, err := svc.RecordDonation(s.ctx, s.request.ID, s.donor, 2500, "tok_down")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *LedgerServiceSuite) TestSupporterCount() {
	donorA, donorB := id.NewUserID(), id.NewUserID()
	for i, d := range []id.UserID{donorA, donorA, donorB} {
		_, err := s.svc.RecordDonation(s.ctx, s.request.ID, d, 1000, fmt.Sprintf("tok_sup_%d", i))
		s.Require().NoError(err)
	}

	count, err := s.svc.SupporterCount(s.ctx, s.request.ID)
	s.Require().NoError(err)
	s.Equal(2, count)
}
