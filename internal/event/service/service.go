// Package service orchestrates volunteer events: creation, volunteering and
// the comment thread.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"reliefhub/internal/event/models"
	id "reliefhub/pkg/domain"
	dErrors "reliefhub/pkg/domain-errors"
	audit "reliefhub/pkg/platform/audit"
	"reliefhub/pkg/platform/sentinel"
	"reliefhub/pkg/requestcontext"
)

// EventStore is the persistence contract for volunteer events.
type EventStore interface {
	Create(ctx context.Context, e *models.Event) error
	FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error)
	List(ctx context.Context) ([]*models.Event, error)
	Delete(ctx context.Context, eventID id.EventID) error
	ToggleVolunteer(ctx context.Context, eventID id.EventID, userID id.UserID) (bool, error)
	AddComment(ctx context.Context, c *models.Comment) error
	ListComments(ctx context.Context, eventID id.EventID) ([]*models.Comment, error)
	FindComment(ctx context.Context, eventID id.EventID, commentID id.CommentID) (*models.Comment, error)
	DeleteComment(ctx context.Context, eventID id.EventID, commentID id.CommentID) error
}

// AuthorDirectory resolves author display names for comment threads.
type AuthorDirectory interface {
	DisplayNames(ctx context.Context, ids []id.UserID) (map[id.UserID]string, error)
}

// AuditPublisher records event lifecycle actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type serviceConfig struct {
	logger  *slog.Logger
	auditor AuditPublisher
	authors AuthorDirectory
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

func WithLogger(l *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = l }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(c *serviceConfig) { c.auditor = p }
}

func WithAuthorDirectory(d AuthorDirectory) Option {
	return func(c *serviceConfig) { c.authors = d }
}

// Service orchestrates volunteer event management.
type Service struct {
	events  EventStore
	logger  *slog.Logger
	auditor AuditPublisher
	authors AuthorDirectory
}

func New(events EventStore, opts ...Option) *Service {
	cfg := &serviceConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		events:  events,
		logger:  cfg.logger,
		auditor: cfg.auditor,
		authors: cfg.authors,
	}
}

// CreateInput carries the event creation payload.
type CreateInput struct {
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
}

func (s *Service) Create(ctx context.Context, creatorID id.UserID, in CreateInput) (*models.Event, error) {
	e, err := models.NewEvent(id.NewEventID(), creatorID, in.Title, in.Description, in.Location, in.StartsAt, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.events.Create(ctx, e); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create event")
	}

	s.emit(ctx, audit.Event{
		UserID:  creatorID,
		Action:  string(audit.EventEventCreated),
		Subject: e.ID.String(),
	})
	return e, nil
}

func (s *Service) Get(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	e, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, wrapEventErr(err)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Event, error) {
	all, err := s.events.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return all, nil
}

// Delete removes an event. Only the creator may delete.
func (s *Service) Delete(ctx context.Context, eventID id.EventID, callerID id.UserID) error {
	e, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return wrapEventErr(err)
	}
	if e.CreatorID != callerID {
		return dErrors.New(dErrors.CodeForbidden, "only the creator can delete this event")
	}

	if err := s.events.Delete(ctx, eventID); err != nil {
		return wrapEventErr(err)
	}

	s.emit(ctx, audit.Event{
		UserID:  callerID,
		Action:  string(audit.EventEventDeleted),
		Subject: eventID.String(),
	})
	return nil
}

// ToggleVolunteer flips the caller's volunteer status and reports the
// resulting state.
func (s *Service) ToggleVolunteer(ctx context.Context, eventID id.EventID, userID id.UserID) (bool, error) {
	volunteering, err := s.events.ToggleVolunteer(ctx, eventID, userID)
	if err != nil {
		return false, wrapEventErr(err)
	}

	s.emit(ctx, audit.Event{
		UserID:  userID,
		Action:  string(audit.EventVolunteerToggled),
		Subject: eventID.String(),
	})
	return volunteering, nil
}

func (s *Service) AddComment(ctx context.Context, eventID id.EventID, authorID id.UserID, body string) (*models.Comment, error) {
	c, err := models.NewComment(id.NewCommentID(), eventID, authorID, body, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.events.AddComment(ctx, c); err != nil {
		return nil, wrapEventErr(err)
	}
	return c, nil
}

// ListComments returns the event's comment thread, oldest first, with author
// names resolved.
func (s *Service) ListComments(ctx context.Context, eventID id.EventID) ([]models.CommentWithAuthor, error) {
	comments, err := s.events.ListComments(ctx, eventID)
	if err != nil {
		return nil, wrapEventErr(err)
	}

	names := s.resolveAuthorNames(ctx, comments)
	out := make([]models.CommentWithAuthor, 0, len(comments))
	for _, c := range comments {
		out = append(out, models.CommentWithAuthor{
			Comment:    *c,
			AuthorName: names[c.AuthorID],
		})
	}
	return out, nil
}

// DeleteComment removes a comment. Only its author may delete it.
func (s *Service) DeleteComment(ctx context.Context, eventID id.EventID, commentID id.CommentID, callerID id.UserID) error {
	c, err := s.events.FindComment(ctx, eventID, commentID)
	if err != nil {
		return wrapCommentErr(err)
	}
	if c.AuthorID != callerID {
		return dErrors.New(dErrors.CodeForbidden, "only the author can delete this comment")
	}

	if err := s.events.DeleteComment(ctx, eventID, commentID); err != nil {
		return wrapCommentErr(err)
	}
	return nil
}

func (s *Service) resolveAuthorNames(ctx context.Context, comments []*models.Comment) map[id.UserID]string {
	if s.authors == nil || len(comments) == 0 {
		return nil
	}

	seen := make(map[id.UserID]struct{}, len(comments))
	ids := make([]id.UserID, 0, len(comments))
	for _, c := range comments {
		if _, ok := seen[c.AuthorID]; ok {
			continue
		}
		seen[c.AuthorID] = struct{}{}
		ids = append(ids, c.AuthorID)
	}

	names, err := s.authors.DisplayNames(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "author name resolution failed", "error", err)
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

func wrapEventErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "event not found")
	case dErrors.HasCode(err, dErrors.CodeForbidden),
		dErrors.HasCode(err, dErrors.CodeBadRequest):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "event store failure")
	}
}

func wrapCommentErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "comment not found")
	case dErrors.HasCode(err, dErrors.CodeForbidden):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "event store failure")
	}
}
