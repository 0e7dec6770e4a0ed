package questions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventstage/backend/internal/models"
)

// Repository handles question persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a questions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new question. The timestamp is assigned by the database,
// never taken from the client.
func (r *Repository) Create(ctx context.Context, q *models.Question) error {
	const query = `INSERT INTO questions (id, session_id, text, username, timestamp)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING timestamp`
	var ts time.Time
	if err := r.pool.QueryRow(ctx, query, q.ID, q.SessionID, q.Text, q.Username).Scan(&ts); err != nil {
		return err
	}
	q.Timestamp = models.EpochMillis(ts)
	return nil
}

// ListBySession returns a session's questions ordered by timestamp descending.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error) {
	const query = `SELECT id, session_id, text, username, timestamp
		FROM questions WHERE session_id = $1 ORDER BY timestamp DESC`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Question
	for rows.Next() {
		var q models.Question
		var ts time.Time
		if err := rows.Scan(&q.ID, &q.SessionID, &q.Text, &q.Username, &ts); err != nil {
			return nil, err
		}
		q.Timestamp = models.EpochMillis(ts)
		list = append(list, q)
	}
	return list, rows.Err()
}
