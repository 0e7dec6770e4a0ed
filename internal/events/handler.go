package events

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/eventstage/backend/internal/models"
	"github.com/eventstage/backend/pkg/response"
	"github.com/eventstage/backend/pkg/storage"
)

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	CoverImageURL string `json:"cover_image_url"`
}

// PresignRequest is the body for POST /events/:eventId/cover/generate-upload-url.
type PresignRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo   *Repository
	s3     *storage.S3 // nil when cover storage is not configured
	logger *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(repo *Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, s3: s3, logger: logger}
}

// List handles GET /events/allEvents.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list events", zap.Error(err))
		response.Internal(c, "internal server error")
		return
	}
	if list == nil {
		list = []models.Event{}
	}
	response.OK(c, list)
}

// GetByID handles GET /events/:eventId.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "event not found")
			return
		}
		h.logger.Error("get event", zap.Error(err))
		response.Internal(c, "internal server error")
		return
	}
	response.OK(c, e)
}

// Create handles POST /events (organizer surface).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e := &models.Event{
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		CoverImageURL: req.CoverImageURL,
	}
	if e.Title == "" {
		response.BadRequest(c, "event title is required")
		return
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event", zap.Error(err))
		response.Internal(c, "internal server error")
		return
	}
	response.Created(c, e)
}

// UploadCover handles POST /events/:eventId/cover (multipart field "file").
// Uploads to S3 and records the public URL on the event.
func (h *Handler) UploadCover(c *gin.Context) {
	if h.s3 == nil {
		response.ServiceUnavailable(c, "cover storage not configured")
		return
	}
	id, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if _, err := h.repo.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "event not found")
			return
		}
		h.logger.Error("get event", zap.Error(err))
		response.Internal(c, "internal server error")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if fileHeader.Size > storage.MaxCoverFileSize {
		response.BadRequest(c, "file too large")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !storage.ValidateCoverFileType(contentType, fileHeader.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(fileHeader.Filename)
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("open upload", zap.Error(err))
		response.Internal(c, "internal server error")
		return
	}
	defer f.Close()

	key := storage.CoverKey(id.String(), fileHeader.Filename)
	url, err := h.s3.Upload(c.Request.Context(), key, contentType, f, fileHeader.Size)
	if err != nil {
		h.logger.Error("upload cover", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "internal server error")
		return
	}
	if err := h.repo.UpdateCoverImage(c.Request.Context(), id, url); err != nil {
		h.logger.Error("update cover url", zap.Error(err))
		response.Internal(c, "internal server error")
		return
	}
	response.OK(c, gin.H{"cover_image_url": url})
}

// GenerateCoverUploadURL handles POST /events/:eventId/cover/generate-upload-url.
// Returns a presigned PUT URL so clients can upload directly to S3.
func (h *Handler) GenerateCoverUploadURL(c *gin.Context) {
	if h.s3 == nil {
		response.ServiceUnavailable(c, "cover storage not configured")
		return
	}
	id, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !storage.ValidateCoverFileType(req.ContentType, req.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(req.Filename)
	}

	key := storage.CoverKey(id.String(), req.Filename)
	uploadURL, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), key, contentType)
	if err != nil {
		h.logger.Error("presign cover upload", zap.Error(err))
		response.Internal(c, "internal server error")
		return
	}
	response.OK(c, gin.H{
		"upload_url": uploadURL,
		"public_url": h.s3.PublicObjectURL(key),
		"key":        key,
	})
}
