package questions

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventstage/backend/internal/models"
	"github.com/eventstage/backend/pkg/response"
)

// Store persists questions.
type Store interface {
	Create(ctx context.Context, q *models.Question) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error)
}

// SessionDirectory resolves session ids.
type SessionDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Aggregator records question submissions in the analytics snapshot.
type Aggregator interface {
	RecordQuestionSubmitted(ctx context.Context, sessionID uuid.UUID) error
}

// Broadcaster fans a persisted question out to attached viewers.
type Broadcaster interface {
	PublishQuestion(sessionID uuid.UUID, q *models.Question)
}

// CreateRequest is the body for POST /sessions/:sessionId/questions.
// Client timestamps are never accepted.
type CreateRequest struct {
	Text     string `json:"text"`
	Username string `json:"username"`
}

// Handler handles question HTTP endpoints.
type Handler struct {
	store      Store
	sessions   SessionDirectory
	aggregator Aggregator
	hub        Broadcaster
	logger     *zap.Logger
}

// NewHandler creates a questions handler.
func NewHandler(store Store, sessions SessionDirectory, aggregator Aggregator, hub Broadcaster, logger *zap.Logger) *Handler {
	return &Handler{store: store, sessions: sessions, aggregator: aggregator, hub: hub, logger: logger}
}

// ListBySession handles GET /sessions/:sessionId/questions.
func (h *Handler) ListBySession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	list, err := h.store.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("list questions", zap.Error(err))
		response.Internal(c, "internal server error")
		return
	}
	if list == nil {
		list = []models.Question{}
	}
	response.OK(c, list)
}

// Create handles POST /sessions/:sessionId/questions: validate, persist,
// count, broadcast, acknowledge. Once the question is persisted the
// submission succeeds; counting and broadcast failures are logged, not
// surfaced, and nothing is rolled back.
func (h *Handler) Create(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		response.BadRequest(c, "question text is required")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = models.DefaultUsername
	}

	ok, err := h.sessions.Exists(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("check session", zap.Error(err))
		response.Internal(c, "internal server error")
		return
	}
	if !ok {
		response.NotFound(c, "session not found")
		return
	}

	q := &models.Question{
		ID:        uuid.New(),
		SessionID: sessionID,
		Text:      text,
		Username:  username,
	}
	if err := h.store.Create(c.Request.Context(), q); err != nil {
		h.logger.Error("create question", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "internal server error")
		return
	}

	if err := h.aggregator.RecordQuestionSubmitted(c.Request.Context(), sessionID); err != nil {
		h.logger.Warn("record question count", zap.Error(err), zap.String("session_id", sessionID.String()))
	}
	h.hub.PublishQuestion(sessionID, q)

	response.Created(c, q)
}
