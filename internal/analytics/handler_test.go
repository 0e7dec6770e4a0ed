package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventstage/backend/internal/models"
)

type mockProvider struct {
	snapshotFn func(ctx context.Context, sessionID uuid.UUID) (*models.AnalyticsSnapshot, error)
}

func (m *mockProvider) Snapshot(ctx context.Context, sessionID uuid.UUID) (*models.AnalyticsSnapshot, error) {
	return m.snapshotFn(ctx, sessionID)
}

func getAnalytics(t *testing.T, provider SnapshotProvider, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/sessions/:sessionId/analytics", NewHandler(provider, zap.NewNop()).GetBySession)

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+sessionID+"/analytics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGetAnalytics_Success(t *testing.T) {
	sessionID := uuid.New()
	provider := &mockProvider{snapshotFn: func(_ context.Context, id uuid.UUID) (*models.AnalyticsSnapshot, error) {
		assert.Equal(t, sessionID, id)
		return &models.AnalyticsSnapshot{
			ID:             uuid.New(),
			SessionID:      id,
			ActiveViewers:  3,
			PeakViewers:    8,
			QuestionsCount: 5,
			AvgWatchTime:   125,
			Timestamp:      time.Now(),
		}, nil
	}}

	rec := getAnalytics(t, provider, sessionID.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.AnalyticsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.ActiveViewers)
	assert.Equal(t, 8, got.PeakViewers)
	assert.Equal(t, int64(125), got.AvgWatchTime)
}

func TestGetAnalytics_NotFound(t *testing.T) {
	provider := &mockProvider{snapshotFn: func(_ context.Context, _ uuid.UUID) (*models.AnalyticsSnapshot, error) {
		return nil, pgx.ErrNoRows
	}}

	rec := getAnalytics(t, provider, uuid.New().String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAnalytics_BadSessionID(t *testing.T) {
	provider := &mockProvider{snapshotFn: func(_ context.Context, _ uuid.UUID) (*models.AnalyticsSnapshot, error) {
		t.Fatal("provider must not be called for an invalid id")
		return nil, nil
	}}

	rec := getAnalytics(t, provider, "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
