package analytics

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventstage/backend/internal/models"
)

// Repository handles the analytics snapshot rows. All writes are single-row
// atomic updates, so concurrent writers for the same session serialize on the
// row without losing updates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSnapshot creates the snapshot row for a session if it does not exist.
func (r *Repository) EnsureSnapshot(ctx context.Context, sessionID uuid.UUID) error {
	const q = `INSERT INTO analytics (session_id) VALUES ($1)
		ON CONFLICT (session_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, sessionID)
	return err
}

// MergeViewerCount caches the live viewer count and merges the peak with
// GREATEST, so the peak is monotonically non-decreasing and never regresses
// when a fresh count momentarily exceeds it.
func (r *Repository) MergeViewerCount(ctx context.Context, sessionID uuid.UUID, active int) error {
	const q = `UPDATE analytics
		SET active_viewers = $2, peak_viewers = GREATEST(peak_viewers, $2), timestamp = NOW()
		WHERE session_id = $1`
	_, err := r.pool.Exec(ctx, q, sessionID, active)
	return err
}

// IncrementQuestions adds exactly one to questions_count. The increment runs
// inside the database, so concurrent submissions cannot lose updates.
func (r *Repository) IncrementQuestions(ctx context.Context, sessionID uuid.UUID) error {
	const q = `UPDATE analytics
		SET questions_count = questions_count + 1, timestamp = NOW()
		WHERE session_id = $1`
	_, err := r.pool.Exec(ctx, q, sessionID)
	return err
}

// RecalculateAvgWatchTime recomputes avg_watch_time (whole seconds) from
// closed viewer log rows.
func (r *Repository) RecalculateAvgWatchTime(ctx context.Context, sessionID uuid.UUID) error {
	const q = `UPDATE analytics
		SET avg_watch_time = (
			SELECT COALESCE(AVG(watch_seconds), 0)::BIGINT
			FROM viewer_sessions WHERE session_id = $1 AND left_at IS NOT NULL
		), timestamp = NOW()
		WHERE session_id = $1`
	_, err := r.pool.Exec(ctx, q, sessionID)
	return err
}

// GetBySession returns the stored snapshot for a session. pgx.ErrNoRows is
// returned when the session has never been observed.
func (r *Repository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*models.AnalyticsSnapshot, error) {
	const q = `SELECT id, session_id, active_viewers, peak_viewers, questions_count, avg_watch_time, timestamp
		FROM analytics WHERE session_id = $1`
	var s models.AnalyticsSnapshot
	err := r.pool.QueryRow(ctx, q, sessionID).
		Scan(&s.ID, &s.SessionID, &s.ActiveViewers, &s.PeakViewers, &s.QuestionsCount, &s.AvgWatchTime, &s.Timestamp)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
