package donation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"reliefhub/internal/ledger/models"
	requestmodels "reliefhub/internal/request/models"
	id "reliefhub/pkg/domain"
	"reliefhub/pkg/platform/sentinel"
)

// PostgresStore persists the donation ledger in PostgreSQL.
//
// Idempotency is enforced by the unique constraint on donations.payment_ref;
// atomicity by running the append and the aggregate increment in one
// transaction. The increment is a SQL-level `SET x = x + $n`, never a
// read-modify-write in Go, so concurrent donations to the same request
// serialize on the row without lost updates.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// ApplyDonation applies d exactly once, keyed by PaymentRef.
//
// First application: inserts the donation row, increments the aggregate
// counters, and registers the donor, all in one transaction. Replay: the
// insert conflicts, the transaction is abandoned without touching the
// aggregate, and the current aggregate is returned with applied=false.
// A missing funding request surfaces as sentinel.ErrNotFound before any row
// is written.
func (s *PostgresStore) ApplyDonation(ctx context.Context, d *models.Donation) (*requestmodels.FundingRequest, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
INSERT INTO donations (id, request_id, donor_id, amount, payment_ref, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (payment_ref) DO NOTHING;
`, uuid.UUID(d.ID), uuid.UUID(d.RequestID), uuid.UUID(d.DonorID), d.Amount, d.PaymentRef, d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, false, sentinel.ErrNotFound
		}
		return nil, false, fmt.Errorf("insert donation: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Replay of a known payment_ref. Abandon the transaction and read
		// the aggregate as it stands.
		_ = tx.Rollback(ctx)
		agg, err := s.findRequest(ctx, s.pool, d.RequestID)
		if err != nil {
			return nil, false, err
		}
		return agg, false, nil
	}

	row := tx.QueryRow(ctx, `
UPDATE funding_requests
SET donation_number = donation_number + 1,
    donation_received = donation_received + $2,
    updated_at = $3
WHERE id = $1
RETURNING `+requestColumns+`;
`, uuid.UUID(d.RequestID), d.Amount, d.CreatedAt)
	agg, err := scanRequest(row)
	if err != nil {
		return nil, false, err
	}

	_, err = tx.Exec(ctx, `
INSERT INTO request_donors (request_id, donor_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING;
`, uuid.UUID(d.RequestID), uuid.UUID(d.DonorID))
	if err != nil {
		return nil, false, fmt.Errorf("register donor: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return agg, true, nil
}

// ListRecent returns up to limit donations for the request, newest first.
func (s *PostgresStore) ListRecent(ctx context.Context, requestID id.RequestID, limit int) ([]*models.Donation, error) {
	if _, err := s.findRequest(ctx, s.pool, requestID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
SELECT id, request_id, donor_id, amount, payment_ref, created_at
FROM donations
WHERE request_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2;
`, uuid.UUID(requestID), limit)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	var out []*models.Donation
	for rows.Next() {
		var d models.Donation
		var rawID, rawRequest, rawDonor uuid.UUID
		if err := rows.Scan(&rawID, &rawRequest, &rawDonor, &d.Amount, &d.PaymentRef, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		d.ID = id.DonationID(rawID)
		d.RequestID = id.RequestID(rawRequest)
		d.DonorID = id.UserID(rawDonor)
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donations: %w", err)
	}
	return out, nil
}

// CountDistinctDonors reports the size of the request's donor set.
func (s *PostgresStore) CountDistinctDonors(ctx context.Context, requestID id.RequestID) (int, error) {
	if _, err := s.findRequest(ctx, s.pool, requestID); err != nil {
		return 0, err
	}

	var count int
	err := s.pool.QueryRow(ctx, `
SELECT count(*) FROM request_donors WHERE request_id = $1;
`, uuid.UUID(requestID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count donors: %w", err)
	}
	return count, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const requestColumns = `id, title, description, creator_id, goal, donation_number, donation_received, status, image_url, created_at, updated_at`

func (s *PostgresStore) findRequest(ctx context.Context, q queryRower, requestID id.RequestID) (*requestmodels.FundingRequest, error) {
	row := q.QueryRow(ctx, `
SELECT `+requestColumns+` FROM funding_requests WHERE id = $1;
`, uuid.UUID(requestID))
	return scanRequest(row)
}

func scanRequest(row pgx.Row) (*requestmodels.FundingRequest, error) {
	var r requestmodels.FundingRequest
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
	r.Status = requestmodels.RequestStatus(status)
	return &r, nil
}
