package analytics

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/eventstage/backend/internal/models"
	"github.com/eventstage/backend/pkg/response"
)

// SnapshotProvider serves the latest analytics snapshot for a session.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, sessionID uuid.UUID) (*models.AnalyticsSnapshot, error)
}

// Handler handles GET /sessions/:sessionId/analytics.
type Handler struct {
	provider SnapshotProvider
	logger   *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(provider SnapshotProvider, logger *zap.Logger) *Handler {
	return &Handler{provider: provider, logger: logger}
}

// GetBySession handles GET /sessions/:sessionId/analytics.
func (h *Handler) GetBySession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	s, err := h.provider.Snapshot(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "no analytics found")
			return
		}
		h.logger.Error("get analytics", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "internal server error")
		return
	}
	response.OK(c, s)
}
