package models

import (
	"time"

	"github.com/google/uuid"
)

// ViewerSession is one viewer connection's attachment window for a session.
// Rows are closed on detach; closed rows feed avg_watch_time.
type ViewerSession struct {
	ID           int64      `json:"id"`
	SessionID    uuid.UUID  `json:"session_id"`
	ConnectionID string     `json:"connection_id"`
	JoinedAt     time.Time  `json:"joined_at"`
	LeftAt       *time.Time `json:"left_at,omitempty"`
	WatchSeconds int64      `json:"watch_seconds"`
}
