package request

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reliefhub/internal/request/models"
	id "reliefhub/pkg/domain"
	"reliefhub/pkg/platform/sentinel"
)

// PostgresStore persists funding requests in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const requestColumns = `id, title, description, creator_id, goal, donation_number, donation_received, status, image_url, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, r *models.FundingRequest) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO funding_requests (`+requestColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
`, uuid.UUID(r.ID), r.Title, r.Description, uuid.UUID(r.CreatorID), r.Goal,
		r.DonationNumber, r.DonationReceived, string(r.Status), r.ImageURL, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create funding request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.FundingRequest, error) {
	row := s.pool.QueryRow(ctx, `
SELECT `+requestColumns+` FROM funding_requests WHERE id = $1;
`, uuid.UUID(requestID))
	return scanRequest(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.FundingRequest, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+requestColumns+` FROM funding_requests ORDER BY created_at DESC;
`)
	if err != nil {
		return nil, fmt.Errorf("list funding requests: %w", err)
	}
	defer rows.Close()

	var out []*models.FundingRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate funding requests: %w", err)
	}
	return out, nil
}

// Execute runs validate then mutate on the aggregate inside a transaction
// with the row locked FOR UPDATE, then persists the allow-listed editable
// fields. Aggregate totals are excluded from the UPDATE on purpose: this
// path must never write DonationNumber or DonationReceived, which belong to
// the ledger's atomic increment.
func (s *PostgresStore) Execute(ctx context.Context, requestID id.RequestID,
	validate func(*models.FundingRequest) error,
	mutate func(*models.FundingRequest),
) (*models.FundingRequest, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
SELECT `+requestColumns+` FROM funding_requests WHERE id = $1 FOR UPDATE;
`, uuid.UUID(requestID))
	r, err := scanRequest(row)
	if err != nil {
		return nil, err
	}

	if validate != nil {
		if err := validate(r); err != nil {
			return nil, err
		}
	}
	mutate(r)

	_, err = tx.Exec(ctx, `
UPDATE funding_requests
SET title = $2, description = $3, goal = $4, status = $5, image_url = $6, updated_at = $7
WHERE id = $1;
`, uuid.UUID(r.ID), r.Title, r.Description, r.Goal, string(r.Status), r.ImageURL, r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update funding request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) Delete(ctx context.Context, requestID id.RequestID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM funding_requests WHERE id = $1;`, uuid.UUID(requestID))
	if err != nil {
		return fmt.Errorf("delete funding request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanRequest(row pgx.Row) (*models.FundingRequest, error) {
	var r models.FundingRequest
	var rawID, rawCreator uuid.UUID
	var status string
	err := row.Scan(&rawID, &r.Title, &r.Description, &rawCreator, &r.Goal,
		&r.DonationNumber, &r.DonationReceived, &status, &r.ImageURL, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan funding request: %w", err)
	}
	r.ID = id.RequestID(rawID)
	r.CreatorID = id.UserID(rawCreator)
	r.Status = models.RequestStatus(status)
	return &r, nil
}
