package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is derived from start_time at read time, never stored.
type SessionStatus string

const (
	StatusNotScheduled SessionStatus = "not_scheduled"
	StatusUpcoming     SessionStatus = "upcoming"
	StatusLive         SessionStatus = "live"
	StatusRecorded     SessionStatus = "recorded"
)

// LiveWindow is how long after start_time a session counts as live.
// Time-boxed heuristic; there is no true end-of-stream signal.
const LiveWindow = 24 * time.Hour

// Session represents one video session belonging to an event.
type Session struct {
	ID          uuid.UUID     `json:"id"`
	EventID     uuid.UUID     `json:"event_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	VideoURL    string        `json:"video_url"`
	StartTime   *time.Time    `json:"start_time,omitempty"`
	Status      SessionStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

// DeriveStatus computes the session status relative to now and stores it on
// the struct for serialization.
func (s *Session) DeriveStatus(now time.Time) SessionStatus {
	switch {
	case s.StartTime == nil || s.StartTime.IsZero():
		s.Status = StatusNotScheduled
	case s.StartTime.After(now):
		s.Status = StatusUpcoming
	case now.Sub(*s.StartTime) < LiveWindow:
		s.Status = StatusLive
	default:
		s.Status = StatusRecorded
	}
	return s.Status
}
