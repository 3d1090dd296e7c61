// Package service orchestrates the funding request lifecycle. Monetary
// totals are read-only here; only the ledger mutates them.
package service

import (
	"context"
	"errors"
	"log/slog"

	requestmetrics "reliefhub/internal/request/metrics"
	"reliefhub/internal/request/models"
	id "reliefhub/pkg/domain"
	dErrors "reliefhub/pkg/domain-errors"
	audit "reliefhub/pkg/platform/audit"
	"reliefhub/pkg/platform/sentinel"
	"reliefhub/pkg/requestcontext"
)

// RequestStore is the persistence contract for funding requests.
type RequestStore interface {
	Create(ctx context.Context, r *models.FundingRequest) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.FundingRequest, error)
	List(ctx context.Context) ([]*models.FundingRequest, error)
	// Execute atomically runs validate then mutate while the aggregate is
	// locked (store mutex or SELECT ... FOR UPDATE).
	Execute(ctx context.Context, requestID id.RequestID,
		validate func(*models.FundingRequest) error,
		mutate func(*models.FundingRequest)) (*models.FundingRequest, error)
	Delete(ctx context.Context, requestID id.RequestID) error
}

// AuditPublisher records request lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type serviceConfig struct {
	logger  *slog.Logger
	auditor AuditPublisher
	metrics *requestmetrics.Metrics
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

func WithLogger(l *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = l }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(c *serviceConfig) { c.auditor = p }
}

func WithMetrics(m *requestmetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

// Service orchestrates funding request management.
type Service struct {
	requests RequestStore
	logger   *slog.Logger
	auditor  AuditPublisher
	metrics  *requestmetrics.Metrics
}

func New(requests RequestStore, opts ...Option) *Service {
	cfg := &serviceConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		requests: requests,
		logger:   cfg.logger,
		auditor:  cfg.auditor,
		metrics:  cfg.metrics,
	}
}

// CreateInput carries the creation payload.
type CreateInput struct {
	Title       string
	Description string
	Goal        int64
	ImageURL    string
}

func (s *Service) Create(ctx context.Context, creatorID id.UserID, in CreateInput) (*models.FundingRequest, error) {
	r, err := models.NewFundingRequest(id.NewRequestID(), creatorID, in.Title, in.Description, in.Goal, in.ImageURL, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.requests.Create(ctx, r); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create funding request")
	}

	if s.metrics != nil {
		s.metrics.IncrementRequestsCreated()
	}
	s.emit(ctx, audit.Event{
		UserID:  creatorID,
		Action:  string(audit.EventRequestCreated),
		Subject: r.ID.String(),
	})
	return r, nil
}

func (s *Service) Get(ctx context.Context, requestID id.RequestID) (*models.FundingRequest, error) {
	r, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapRequestErr(err)
	}
	return r, nil
}

func (s *Service) List(ctx context.Context) ([]*models.FundingRequest, error) {
	all, err := s.requests.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list funding requests")
	}
	return all, nil
}

// Update applies an allow-listed edit. Only the creator may edit, and the
// validate callback runs under the aggregate lock so the ownership check and
// the write cannot interleave with a delete.
func (s *Service) Update(ctx context.Context, requestID id.RequestID, callerID id.UserID, upd models.UpdateRequest) (*models.FundingRequest, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	r, err := s.requests.Execute(ctx, requestID,
		func(fr *models.FundingRequest) error {
			if fr.CreatorID != callerID {
				return dErrors.New(dErrors.CodeForbidden, "only the creator can edit this request")
			}
			return nil
		},
		func(fr *models.FundingRequest) {
			fr.Apply(upd, now)
		},
	)
	if err != nil {
		return nil, wrapRequestErr(err)
	}

	s.emit(ctx, audit.Event{
		UserID:  callerID,
		Action:  string(audit.EventRequestUpdated),
		Subject: r.ID.String(),
	})
	return r, nil
}

// Delete removes a request and its donation records. Only the creator may
// delete. The financial history survives in the audit trail, which is
// append-only and independent of the aggregate.
func (s *Service) Delete(ctx context.Context, requestID id.RequestID, callerID id.UserID) error {
	r, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return wrapRequestErr(err)
	}
	if r.CreatorID != callerID {
		return dErrors.New(dErrors.CodeForbidden, "only the creator can delete this request")
	}

	if err := s.requests.Delete(ctx, requestID); err != nil {
		return wrapRequestErr(err)
	}

	if s.metrics != nil {
		s.metrics.IncrementRequestsDeleted()
	}
	s.emit(ctx, audit.Event{
		UserID:  callerID,
		Action:  string(audit.EventRequestDeleted),
		Subject: requestID.String(),
	})
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

func wrapRequestErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "funding request not found")
	case dErrors.HasCode(err, dErrors.CodeForbidden),
		dErrors.HasCode(err, dErrors.CodeBadRequest),
		dErrors.HasCode(err, dErrors.CodeConflict):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "funding request store failure")
	}
}
