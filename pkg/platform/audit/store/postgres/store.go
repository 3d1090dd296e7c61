package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	id "reliefhub/pkg/domain"
	audit "reliefhub/pkg/platform/audit"
)

// Store persists audit events in the audit_events table. Rows are
// append-only; there is no update or delete path.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a PostgreSQL-backed audit store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := audit.AuditEvent(event.Action).Category()

	var userID *uuid.UUID
	if !event.UserID.IsZero() {
		u := uuid.UUID(event.UserID)
		userID = &u
	}

	_, err := s.pool.Exec(ctx, `
INSERT INTO audit_events (id, category, occurred_at, user_id, subject, action, reason, amount, request_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`, uuid.New(), string(category), event.Timestamp, userID, event.Subject, event.Action, event.Reason, event.Amount, event.RequestID)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	rows, err := s.pool.Query(ctx, `
SELECT category, occurred_at, subject, action, reason, amount, request_id
FROM audit_events
WHERE user_id = $1
ORDER BY occurred_at ASC;
`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		event := audit.Event{UserID: userID}
		var category string
		if err := rows.Scan(&category, &event.Timestamp, &event.Subject, &event.Action, &event.Reason, &event.Amount, &event.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
