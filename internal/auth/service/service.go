// Package service implements account registration and login. Sessions are
// stateless: a signed JWT in an HttpOnly cookie, validated per request by
// middleware. The ledger trusts the user ID this package authenticates.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"reliefhub/internal/auth/models"
	jwttoken "reliefhub/internal/jwt_token"
	id "reliefhub/pkg/domain"
	dErrors "reliefhub/pkg/domain-errors"
	audit "reliefhub/pkg/platform/audit"
	"reliefhub/pkg/platform/sentinel"
	"reliefhub/pkg/requestcontext"
)

// UserStore is the persistence contract for accounts.
type UserStore interface {
	CreateIfEmailAvailable(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []id.UserID) (map[id.UserID]*models.User, error)
}

// AuditPublisher records security-relevant account events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	users    UserStore
	tokens   *jwttoken.JWTService
	tokenTTL time.Duration
	logger   *slog.Logger
	auditor  AuditPublisher
}

// Option configures optional service collaborators.
type Option func(*Service)

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

func New(users UserStore, tokens *jwttoken.JWTService, tokenTTL time.Duration, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		users:    users,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	if len(password) < 8 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	u, err := models.NewUser(id.NewUserID(), name, email, string(hash), requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.users.CreateIfEmailAvailable(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.emit(ctx, audit.Event{
		UserID:  u.ID,
		Action:  string(audit.EventUserRegistered),
		Subject: u.Email,
	})
	return u, nil
}

// Login verifies credentials and issues a signed access token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Same error as a bad password so probes can't enumerate accounts.
			return nil, "", dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.emit(ctx, audit.Event{
			UserID:  u.ID,
			Action:  string(audit.EventLoginFailed),
			Subject: u.Email,
		})
		return nil, "", dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
	}

	token, err := s.tokens.GenerateAccessToken(u.ID, s.tokenTTL)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.emit(ctx, audit.Event{
		UserID:  u.ID,
		Action:  string(audit.EventLoginSucceeded),
		Subject: u.Email,
	})
	return u, token, nil
}

// CurrentUser resolves the authenticated account.
func (s *Service) CurrentUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	return u, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
