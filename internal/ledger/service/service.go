// Package service implements the donation ledger: exactly-once application
// of confirmed payments to a funding request's aggregate totals, plus the
// donation history read path.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	ledgermetrics "reliefhub/internal/ledger/metrics"
	"reliefhub/internal/ledger/models"
	requestmodels "reliefhub/internal/request/models"
	id "reliefhub/pkg/domain"
	dErrors "reliefhub/pkg/domain-errors"
	audit "reliefhub/pkg/platform/audit"
	"reliefhub/pkg/platform/sentinel"
	"reliefhub/pkg/requestcontext"
)

// Store is the persistence contract for the ledger. ApplyDonation must be
// atomic: the aggregate increments and the donation append happen as one
// unit, and a replayed PaymentRef must not change anything.
type Store interface {
	ApplyDonation(ctx context.Context, d *models.Donation) (agg *requestmodels.FundingRequest, applied bool, err error)
	ListRecent(ctx context.Context, requestID id.RequestID, limit int) ([]*models.Donation, error)
	CountDistinctDonors(ctx context.Context, requestID id.RequestID) (int, error)
}

// DonorDirectory resolves donor display names for the history read path.
type DonorDirectory interface {
	DisplayNames(ctx context.Context, ids []id.UserID) (map[id.UserID]string, error)
}

// AuditPublisher records ledger events for the financial audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type serviceConfig struct {
	logger  *slog.Logger
	auditor AuditPublisher
	metrics *ledgermetrics.Metrics
	donors  DonorDirectory
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

func WithLogger(l *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = l }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(c *serviceConfig) { c.auditor = p }
}

func WithMetrics(m *ledgermetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

func WithDonorDirectory(d DonorDirectory) Option {
	return func(c *serviceConfig) { c.donors = d }
}

// Service is the donation ledger.
type Service struct {
	store   Store
	logger  *slog.Logger
	auditor AuditPublisher
	metrics *ledgermetrics.Metrics
	donors  DonorDirectory
}

func New(store Store, opts ...Option) *Service {
	cfg := &serviceConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		store:   store,
		logger:  cfg.logger,
		auditor: cfg.auditor,
		metrics: cfg.metrics,
		donors:  cfg.donors,
	}
}

// defaultHistoryLimit caps unbounded history reads.
const defaultHistoryLimit = 20

// RecordDonation applies a confirmed payment to the request's aggregate
// exactly once, keyed by paymentRef.
//
// Validation failures reject before any store access. A replayed paymentRef
// returns the current aggregate with success so provider retries and client
// double submits converge on the same final state. Store failures surface as
// retryable (unavailable): the caller retries with the same paymentRef, and
// idempotency makes the retry safe.
func (s *Service) RecordDonation(ctx context.Context, requestID id.RequestID, donorID id.UserID, amount int64, paymentRef string) (*requestmodels.FundingRequest, error) {
	start := time.Now()

	d, err := models.NewDonation(id.NewDonationID(), requestID, donorID, amount, strings.TrimSpace(paymentRef), requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	agg, applied, err := s.store.ApplyDonation(ctx, d)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Never silently drop a confirmed payment: the 404 tells the
			// caller to route it to reconciliation.
			s.logger.ErrorContext(ctx, "confirmed payment targets missing request",
				"request_id", requestcontext.RequestID(ctx),
				"funding_request", requestID.String(),
				"payment_ref", d.PaymentRef,
			)
			return nil, dErrors.New(dErrors.CodeNotFound, "funding request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger store unavailable, retry with the same payment reference")
	}

	if !applied {
		if s.metrics != nil {
			s.metrics.ObserveDuplicate(start)
		}
		s.emit(ctx, audit.Event{
			UserID:  donorID,
			Action:  string(audit.EventDuplicatePayment),
			Subject: requestID.String(),
			Reason:  d.PaymentRef,
			Amount:  amount,
		})
		return agg, nil
	}

	if s.metrics != nil {
		s.metrics.ObserveRecorded(amount, start)
	}
	s.emit(ctx, audit.Event{
		UserID:  donorID,
		Action:  string(audit.EventDonationRecorded),
		Subject: requestID.String(),
		Reason:  d.PaymentRef,
		Amount:  amount,
	})
	return agg, nil
}

// ListRecentDonations returns the most recent donations for a request,
// newest first, with donor display names resolved.
func (s *Service) ListRecentDonations(ctx context.Context, requestID id.RequestID, limit int) ([]models.DonationWithDonor, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultHistoryLimit
	}

	donations, err := s.store.ListRecent(ctx, requestID, limit)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "funding request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read donation history")
	}

	names := s.resolveDonorNames(ctx, donations)
	out := make([]models.DonationWithDonor, 0, len(donations))
	for _, d := range donations {
		out = append(out, models.DonationWithDonor{
			Donation:  *d,
			DonorName: names[d.DonorID],
		})
	}
	return out, nil
}

// SupporterCount reports the number of distinct donors for a request.
func (s *Service) SupporterCount(ctx context.Context, requestID id.RequestID) (int, error) {
	count, err := s.store.CountDistinctDonors(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.New(dErrors.CodeNotFound, "funding request not found")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count supporters")
	}
	return count, nil
}

func (s *Service) resolveDonorNames(ctx context.Context, donations []*models.Donation) map[id.UserID]string {
	if s.donors == nil || len(donations) == 0 {
		return nil
	}

	seen := make(map[id.UserID]struct{}, len(donations))
	ids := make([]id.UserID, 0, len(donations))
	for _, d := range donations {
		if _, ok := seen[d.DonorID]; ok {
			continue
		}
		seen[d.DonorID] = struct{}{}
		ids = append(ids, d.DonorID)
	}

	names, err := s.donors.DisplayNames(ctx, ids)
	if err != nil {
		// History stays readable without names; log and degrade.
		s.logger.WarnContext(ctx, "donor name resolution failed", "error", err)
		return nil
	}
	return names
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
