package viewerlog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles viewer_sessions rows: one row per connection attachment
// window, closed on detach. Closed rows feed avg_watch_time.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a viewer log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LogJoin inserts an open row when a connection attaches to a session.
func (r *Repository) LogJoin(ctx context.Context, sessionID uuid.UUID, connectionID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO viewer_sessions (session_id, connection_id, joined_at) VALUES ($1, $2, NOW())`,
		sessionID, connectionID)
	return err
}

// LogLeave closes the most recent open row for this connection, computing
// watch_seconds from the join time. Safe to call for already-closed rows.
func (r *Repository) LogLeave(ctx context.Context, sessionID uuid.UUID, connectionID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE viewer_sessions v
		 SET left_at = NOW(), watch_seconds = GREATEST(0, EXTRACT(EPOCH FROM (NOW() - v.joined_at))::BIGINT)
		 FROM (
			SELECT id FROM viewer_sessions
			WHERE session_id = $1 AND connection_id = $2 AND left_at IS NULL
			ORDER BY joined_at DESC LIMIT 1
		 ) AS sub
		 WHERE v.id = sub.id`,
		sessionID, connectionID)
	return err
}
