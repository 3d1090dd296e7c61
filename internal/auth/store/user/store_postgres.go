package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"reliefhub/internal/auth/models"
	id "reliefhub/pkg/domain"
	"reliefhub/pkg/platform/sentinel"
)

// PostgresStore persists users in PostgreSQL. Email uniqueness is enforced
// by the unique index on lower(email).
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const uniqueViolation = "23505"

func (s *PostgresStore) CreateIfEmailAvailable(ctx context.Context, u *models.User) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO users (id, name, email, password_hash, created_at)
VALUES ($1, $2, lower($3), $4, $5);
`, uuid.UUID(u.ID), u.Name, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.scanOne(s.pool.QueryRow(ctx, `
SELECT id, name, email, password_hash, created_at
FROM users WHERE id = $1;
`, uuid.UUID(userID)))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanOne(s.pool.QueryRow(ctx, `
SELECT id, name, email, password_hash, created_at
FROM users WHERE email = lower($1);
`, email))
}

func (s *PostgresStore) FindByIDs(ctx context.Context, ids []id.UserID) (map[id.UserID]*models.User, error) {
	raw := make([]uuid.UUID, len(ids))
	for i, userID := range ids {
		raw[i] = uuid.UUID(userID)
	}

	rows, err := s.pool.Query(ctx, `
SELECT id, name, email, password_hash, created_at
FROM users WHERE id = ANY($1);
`, raw)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer rows.Close()

	found := make(map[id.UserID]*models.User, len(ids))
	for rows.Next() {
		var u models.User
		var rawID uuid.UUID
		if err := rows.Scan(&rawID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.ID = id.UserID(rawID)
		found[u.ID] = &u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return found, nil
}

func (s *PostgresStore) scanOne(row pgx.Row) (*models.User, error) {
	var u models.User
	var rawID uuid.UUID
	err := row.Scan(&rawID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.ID = id.UserID(rawID)
	return &u, nil
}
