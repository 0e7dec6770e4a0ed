package sessions

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventstage/backend/internal/models"
)

// Repository handles session persistence. It also serves as the session
// existence check for the realtime hub and the questions handler.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new session under an event.
func (r *Repository) Create(ctx context.Context, s *models.Session) error {
	const q = `INSERT INTO sessions (id, event_id, title, description, video_url, start_time)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, s.EventID, s.Title, s.Description, s.VideoURL, s.StartTime).
		Scan(&s.ID, &s.CreatedAt)
}

// GetByID returns a session by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const q = `SELECT id, event_id, title, description, video_url, start_time, created_at
		FROM sessions WHERE id = $1`
	var s models.Session
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&s.ID, &s.EventID, &s.Title, &s.Description, &s.VideoURL, &s.StartTime, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByEvent returns an event's sessions ordered by start_time ascending.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Session, error) {
	const q = `SELECT id, event_id, title, description, video_url, start_time, created_at
		FROM sessions WHERE event_id = $1 ORDER BY start_time ASC NULLS LAST`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.EventID, &s.Title, &s.Description, &s.VideoURL, &s.StartTime, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Exists reports whether a session id resolves.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, id).Scan(&ok)
	return ok, err
}
