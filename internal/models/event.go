package models

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a published virtual event owning zero or more sessions.
// Immutable from the viewer's perspective once published.
type Event struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	CoverImageURL string    `json:"cover_image_url"`
	CreatedAt     time.Time `json:"created_at"`
}
