package models

import (
	"time"

	"github.com/google/uuid"
)

// AnalyticsSnapshot is the single mutable analytics aggregate per session.
// Invariant: peak_viewers >= active_viewers after every update; writers merge
// with GREATEST rather than overwriting the peak.
type AnalyticsSnapshot struct {
	ID             uuid.UUID `json:"id"`
	SessionID      uuid.UUID `json:"session_id"`
	ActiveViewers  int       `json:"active_viewers"`
	PeakViewers    int       `json:"peak_viewers"`
	QuestionsCount int       `json:"questions_count"`
	AvgWatchTime   int64     `json:"avg_watch_time"` // whole seconds
	Timestamp      time.Time `json:"timestamp"`
}
