package questions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventstage/backend/internal/models"
)

type mockStore struct {
	createFn func(ctx context.Context, q *models.Question) error
	listFn   func(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error)
}

func (m *mockStore) Create(ctx context.Context, q *models.Question) error {
	if m.createFn != nil {
		return m.createFn(ctx, q)
	}
	q.Timestamp = models.EpochMillis(time.Now())
	return nil
}

func (m *mockStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error) {
	if m.listFn != nil {
		return m.listFn(ctx, sessionID)
	}
	return nil, nil
}

type mockSessions struct {
	existsFn func(ctx context.Context, id uuid.UUID) (bool, error)
}

func (m *mockSessions) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, id)
	}
	return true, nil
}

type mockAggregator struct {
	mu       sync.Mutex
	calls    int
	recordFn func(ctx context.Context, sessionID uuid.UUID) error
}

func (m *mockAggregator) RecordQuestionSubmitted(ctx context.Context, sessionID uuid.UUID) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.recordFn != nil {
		return m.recordFn(ctx, sessionID)
	}
	return nil
}

type mockBroadcaster struct {
	mu        sync.Mutex
	published []*models.Question
}

func (m *mockBroadcaster) PublishQuestion(_ uuid.UUID, q *models.Question) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, q)
}

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/sessions/:sessionId/questions", h.ListBySession)
	r.POST("/sessions/:sessionId/questions", h.Create)
	return r
}

func postQuestion(t *testing.T, r *gin.Engine, sessionID string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/questions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateQuestion_Success(t *testing.T) {
	store := &mockStore{}
	agg := &mockAggregator{}
	hub := &mockBroadcaster{}
	h := NewHandler(store, &mockSessions{}, agg, hub, zap.NewNop())
	r := newTestRouter(h)

	before := time.Now().UnixMilli()
	rec := postQuestion(t, r, uuid.New().String(), `{"text": "Hello", "username": "Alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		Username  string `json:"username"`
		Timestamp int64  `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "Hello", got.Text)
	assert.Equal(t, "Alice", got.Username)
	assert.GreaterOrEqual(t, got.Timestamp, before, "timestamp is server-assigned")

	assert.Equal(t, 1, agg.calls)
	require.Len(t, hub.published, 1)
	assert.Equal(t, "Hello", hub.published[0].Text)
}

func TestCreateQuestion_DefaultsUsername(t *testing.T) {
	h := NewHandler(&mockStore{}, &mockSessions{}, &mockAggregator{}, &mockBroadcaster{}, zap.NewNop())
	r := newTestRouter(h)

	rec := postQuestion(t, r, uuid.New().String(), `{"text": "who am i"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got models.Question
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.DefaultUsername, got.Username)
}

func TestCreateQuestion_WhitespaceTextRejected(t *testing.T) {
	created := false
	store := &mockStore{createFn: func(_ context.Context, _ *models.Question) error {
		created = true
		return nil
	}}
	agg := &mockAggregator{}
	h := NewHandler(store, &mockSessions{}, agg, &mockBroadcaster{}, zap.NewNop())
	r := newTestRouter(h)

	rec := postQuestion(t, r, uuid.New().String(), `{"text": "   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, created, "nothing may be persisted for an empty submission")
	assert.Equal(t, 0, agg.calls)
}

func TestCreateQuestion_SessionNotFound(t *testing.T) {
	sessions := &mockSessions{existsFn: func(_ context.Context, _ uuid.UUID) (bool, error) {
		return false, nil
	}}
	h := NewHandler(&mockStore{}, sessions, &mockAggregator{}, &mockBroadcaster{}, zap.NewNop())
	r := newTestRouter(h)

	rec := postQuestion(t, r, uuid.New().String(), `{"text": "hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateQuestion_BadSessionID(t *testing.T) {
	h := NewHandler(&mockStore{}, &mockSessions{}, &mockAggregator{}, &mockBroadcaster{}, zap.NewNop())
	r := newTestRouter(h)

	rec := postQuestion(t, r, "not-a-uuid", `{"text": "hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateQuestion_StoreError(t *testing.T) {
	store := &mockStore{createFn: func(_ context.Context, _ *models.Question) error {
		return errors.New("db down")
	}}
	hub := &mockBroadcaster{}
	h := NewHandler(store, &mockSessions{}, &mockAggregator{}, hub, zap.NewNop())
	r := newTestRouter(h)

	rec := postQuestion(t, r, uuid.New().String(), `{"text": "hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, hub.published, "unpersisted questions are never broadcast")
}

func TestCreateQuestion_AggregatorFailureNonFatal(t *testing.T) {
	agg := &mockAggregator{recordFn: func(_ context.Context, _ uuid.UUID) error {
		return errors.New("analytics down")
	}}
	hub := &mockBroadcaster{}
	h := NewHandler(&mockStore{}, &mockSessions{}, agg, hub, zap.NewNop())
	r := newTestRouter(h)

	rec := postQuestion(t, r, uuid.New().String(), `{"text": "hi"}`)
	assert.Equal(t, http.StatusCreated, rec.Code, "persisted submissions succeed even when counting fails")
	assert.Len(t, hub.published, 1)
}

func TestListBySession_MillisTimestamps(t *testing.T) {
	ts := time.UnixMilli(1700000000000).UTC()
	store := &mockStore{listFn: func(_ context.Context, sessionID uuid.UUID) ([]models.Question, error) {
		return []models.Question{{
			ID:        uuid.New(),
			SessionID: sessionID,
			Text:      "Hello",
			Username:  "Alice",
			Timestamp: models.EpochMillis(ts),
		}}, nil
	}}
	h := NewHandler(store, &mockSessions{}, &mockAggregator{}, &mockBroadcaster{}, zap.NewNop())
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+uuid.New().String()+"/questions", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"timestamp":1700000000000`)
}

func TestListBySession_EmptyIsArray(t *testing.T) {
	h := NewHandler(&mockStore{}, &mockSessions{}, &mockAggregator{}, &mockBroadcaster{}, zap.NewNop())
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+uuid.New().String()+"/questions", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
