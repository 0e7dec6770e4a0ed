package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DefaultUsername is used when a submission carries no username.
const DefaultUsername = "Anonymous"

// EpochMillis marshals a time as Unix epoch milliseconds, the wire format the
// frontend expects for question timestamps.
type EpochMillis time.Time

// MarshalJSON renders the time as a bare integer of milliseconds.
func (m EpochMillis) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, time.Time(m).UnixMilli(), 10), nil
}

// UnmarshalJSON parses a bare integer of milliseconds.
func (m *EpochMillis) UnmarshalJSON(b []byte) error {
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return err
	}
	*m = EpochMillis(time.UnixMilli(ms).UTC())
	return nil
}

// Time returns the underlying time value.
func (m EpochMillis) Time() time.Time { return time.Time(m) }

// Question represents a viewer question in a session. Immutable once created;
// the timestamp is always server-assigned.
type Question struct {
	ID        uuid.UUID   `json:"id"`
	SessionID uuid.UUID   `json:"session_id"`
	Text      string      `json:"text"`
	Username  string      `json:"username"`
	Timestamp EpochMillis `json:"timestamp"`
}
