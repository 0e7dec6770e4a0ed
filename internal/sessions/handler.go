package sessions

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/eventstage/backend/internal/events"
	"github.com/eventstage/backend/internal/models"
	"github.com/eventstage/backend/pkg/response"
)

// CreateRequest is the body for POST /events/:eventId/sessions.
type CreateRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	VideoURL    string  `json:"video_url"`
	StartTime   *string `json:"start_time"` // RFC 3339; omitted means not scheduled
}

// Handler handles session HTTP endpoints.
type Handler struct {
	repo      *Repository
	eventRepo *events.Repository
	logger    *zap.Logger
}

// NewHandler creates a sessions handler.
func NewHandler(repo *Repository, eventRepo *events.Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, eventRepo: eventRepo, logger: logger}
}

// GetByID handles GET /sessions/:sessionId.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	s, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "session not found")
			return
		}
		h.logger.Error("get session", zap.Error(err))
		response.Internal(c, "internal server error")
		return
	}
	s.DeriveStatus(time.Now())
	response.OK(c, s)
}

// ListByEvent handles GET /events/:eventId/sessions.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list sessions", zap.Error(err))
		response.Internal(c, "internal server error")
		return
	}
	now := time.Now()
	for i := range list {
		list[i].DeriveStatus(now)
	}
	if list == nil {
		list = []models.Session{}
	}
	response.OK(c, list)
}

// Create handles POST /events/:eventId/sessions (organizer surface).
func (h *Handler) Create(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if _, err := h.eventRepo.GetByID(c.Request.Context(), eventID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "event not found")
			return
		}
		h.logger.Error("get event", zap.Error(err))
		response.Internal(c, "internal server error")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := &models.Session{
		EventID:     eventID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		VideoURL:    req.VideoURL,
	}
	if s.Title == "" {
		response.BadRequest(c, "session title is required")
		return
	}
	if req.StartTime != nil {
		t, err := time.Parse(time.RFC3339, *req.StartTime)
		if err != nil {
			response.BadRequest(c, "invalid start_time")
			return
		}
		s.StartTime = &t
	}
	if err := h.repo.Create(c.Request.Context(), s); err != nil {
		h.logger.Error("create session", zap.Error(err))
		response.Internal(c, "internal server error")
		return
	}
	s.DeriveStatus(time.Now())
	response.Created(c, s)
}
