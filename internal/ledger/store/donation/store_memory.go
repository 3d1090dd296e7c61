package donation

import (
	"context"
	"sort"
	"sync"

	"reliefhub/internal/ledger/models"
	requestmodels "reliefhub/internal/request/models"
	requeststore "reliefhub/internal/request/store/request"
	id "reliefhub/pkg/domain"
)

// InMemory is the development and test implementation of the ledger store.
//
// All writes funnel through this store's mutex, so the duplicate check, the
// aggregate increment (delegated to the request store's Execute primitive),
// and the donation append form one atomic unit: no reader of this store can
// observe the increment without the record or vice versa, and concurrent
// increments never lose updates.
type InMemory struct {
	mu        sync.RWMutex
	requests  *requeststore.InMemory
	byRef     map[string]*models.Donation
	byRequest map[id.RequestID][]*models.Donation
	donors    map[id.RequestID]map[id.UserID]struct{}
}

func NewInMemory(requests *requeststore.InMemory) *InMemory {
	return &InMemory{
		requests:  requests,
		byRef:     make(map[string]*models.Donation),
		byRequest: make(map[id.RequestID][]*models.Donation),
		donors:    make(map[id.RequestID]map[id.UserID]struct{}),
	}
}

// ApplyDonation applies d exactly once, keyed by PaymentRef. Returns the
// updated aggregate and whether the donation was newly applied; a replayed
// PaymentRef returns the current aggregate unchanged with applied=false.
// Returns sentinel.ErrNotFound when the funding request does not exist; the
// donation record is not created in that case.
func (s *InMemory) ApplyDonation(ctx context.Context, d *models.Donation) (*requestmodels.FundingRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.byRef[d.PaymentRef]; seen {
		agg, err := s.requests.FindByID(ctx, d.RequestID)
		if err != nil {
			return nil, false, err
		}
		return agg, false, nil
	}

	agg, err := s.requests.Execute(ctx, d.RequestID, nil, func(fr *requestmodels.FundingRequest) {
		fr.ApplyDonation(d.Amount, d.CreatedAt)
	})
	if err != nil {
		return nil, false, err
	}

	clone := *d
	s.byRef[d.PaymentRef] = &clone
	s.byRequest[d.RequestID] = append(s.byRequest[d.RequestID], &clone)
	if s.donors[d.RequestID] == nil {
		s.donors[d.RequestID] = make(map[id.UserID]struct{})
	}
	s.donors[d.RequestID][d.DonorID] = struct{}{}

	return agg, true, nil
}

// ListRecent returns up to limit donations for the request, newest first.
func (s *InMemory) ListRecent(ctx context.Context, requestID id.RequestID, limit int) ([]*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.requests.FindByID(ctx, requestID); err != nil {
		return nil, err
	}

	donations := s.byRequest[requestID]
	out := make([]*models.Donation, 0, len(donations))
	for _, d := range donations {
		clone := *d
		out = append(out, &clone)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountDistinctDonors reports the size of the request's donor set.
func (s *InMemory) CountDistinctDonors(ctx context.Context, requestID id.RequestID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.requests.FindByID(ctx, requestID); err != nil {
		return 0, err
	}
	return len(s.donors[requestID]), nil
}

// sumAmounts is a test hook for the conservation property.
func (s *InMemory) sumAmounts(requestID id.RequestID) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum int64
	for _, d := range s.byRequest[requestID] {
		sum += d.Amount
	}
	return sum
}
