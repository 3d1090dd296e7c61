package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"reliefhub/internal/event/models"
	id "reliefhub/pkg/domain"
	"reliefhub/pkg/platform/sentinel"
)

// PostgresStore persists volunteer events in PostgreSQL.
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

const eventColumns = `e.id, e.title, e.description, e.location, e.creator_id, e.starts_at, e.created_at,
	(SELECT count(*) FROM event_volunteers v WHERE v.event_id = e.id) AS volunteer_count`

func (s *PostgresStore) Create(ctx context.Context, e *models.Event) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO events (id, title, description, location, creator_id, starts_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`, uuid.UUID(e.ID), e.Title, e.Description, e.Location, uuid.UUID(e.CreatorID), e.StartsAt, e.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	row := s.pool.QueryRow(ctx, `
SELECT `+eventColumns+` FROM events e WHERE e.id = $1;
`, uuid.UUID(eventID))
	return scanEvent(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Event, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+eventColumns+` FROM events e ORDER BY e.starts_at ASC;
`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, eventID id.EventID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE id = $1;`, uuid.UUID(eventID))
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ToggleVolunteer flips set membership in one statement per direction: the
// insert-on-conflict tells us whether the user was already volunteering.
func (s *PostgresStore) ToggleVolunteer(ctx context.Context, eventID id.EventID, userID id.UserID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
INSERT INTO event_volunteers (event_id, user_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING;
`, uuid.UUID(eventID), uuid.UUID(userID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return false, sentinel.ErrNotFound
		}
		return false, fmt.Errorf("volunteer insert: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	_, err = s.pool.Exec(ctx, `
DELETE FROM event_volunteers WHERE event_id = $1 AND user_id = $2;
`, uuid.UUID(eventID), uuid.UUID(userID))
	if err != nil {
		return false, fmt.Errorf("volunteer delete: %w", err)
	}
	return false, nil
}

func (s *PostgresStore) AddComment(ctx context.Context, c *models.Comment) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO event_comments (id, event_id, author_id, body, created_at)
VALUES ($1, $2, $3, $4, $5);
`, uuid.UUID(c.ID), uuid.UUID(c.EventID), uuid.UUID(c.AuthorID), c.Body, c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListComments(ctx context.Context, eventID id.EventID) ([]*models.Comment, error) {
	if _, err := s.FindByID(ctx, eventID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
SELECT id, event_id, author_id, body, created_at
FROM event_comments
WHERE event_id = $1
ORDER BY created_at ASC, id ASC;
`, uuid.UUID(eventID))
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var out []*models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindComment(ctx context.Context, eventID id.EventID, commentID id.CommentID) (*models.Comment, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, event_id, author_id, body, created_at
FROM event_comments
WHERE event_id = $1 AND id = $2;
`, uuid.UUID(eventID), uuid.UUID(commentID))
	return scanComment(row)
}

func (s *PostgresStore) DeleteComment(ctx context.Context, eventID id.EventID, commentID id.CommentID) error {
	tag, err := s.pool.Exec(ctx, `
DELETE FROM event_comments WHERE event_id = $1 AND id = $2;
`, uuid.UUID(eventID), uuid.UUID(commentID))
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	var rawID, rawCreator uuid.UUID
	err := row.Scan(&rawID, &e.Title, &e.Description, &e.Location, &rawCreator, &e.StartsAt, &e.CreatedAt, &e.VolunteerCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	e.ID = id.EventID(rawID)
	e.CreatorID = id.UserID(rawCreator)
	return &e, nil
}

func scanComment(row pgx.Row) (*models.Comment, error) {
	var c models.Comment
	var rawID, rawEvent, rawAuthor uuid.UUID
	err := row.Scan(&rawID, &rawEvent, &rawAuthor, &c.Body, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan comment: %w", err)
	}
	c.ID = id.CommentID(rawID)
	c.EventID = id.EventID(rawEvent)
	c.AuthorID = id.UserID(rawAuthor)
	return &c, nil
}
