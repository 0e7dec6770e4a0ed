package analytics

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventstage/backend/internal/models"
)

type fakeRegistry struct {
	mu     sync.Mutex
	counts map[uuid.UUID]int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{counts: make(map[uuid.UUID]int)}
}

func (r *fakeRegistry) set(id uuid.UUID, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[id] = n
}

func (r *fakeRegistry) ActiveCount(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[id]
}

// fakeStore mirrors the repository's single-row atomic update semantics in
// memory: peak merges with max, question counts increment under the lock.
type fakeStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.AnalyticsSnapshot
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[uuid.UUID]*models.AnalyticsSnapshot)}
}

func (s *fakeStore) EnsureSnapshot(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		s.rows[id] = &models.AnalyticsSnapshot{ID: uuid.New(), SessionID: id}
	}
	return nil
}

func (s *fakeStore) MergeViewerCount(_ context.Context, id uuid.UUID, active int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.rows[id]
	row.ActiveViewers = active
	if active > row.PeakViewers {
		row.PeakViewers = active
	}
	return nil
}

func (s *fakeStore) IncrementQuestions(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[id].QuestionsCount++
	return nil
}

func (s *fakeStore) RecalculateAvgWatchTime(_ context.Context, id uuid.UUID) error {
	return nil
}

func (s *fakeStore) GetBySession(_ context.Context, id uuid.UUID) (*models.AnalyticsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *row
	return &cp, nil
}

func TestRecordViewerChangeMergesPeak(t *testing.T) {
	registry := newFakeRegistry()
	store := newFakeStore()
	agg := NewAggregator(registry, store, zap.NewNop())
	sessionID := uuid.New()
	ctx := context.Background()

	for _, n := range []int{3, 5, 2} {
		registry.set(sessionID, n)
		require.NoError(t, agg.RecordViewerChange(ctx, sessionID))
	}

	snap, err := store.GetBySession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.ActiveViewers)
	assert.Equal(t, 5, snap.PeakViewers, "peak must not regress when viewers drop")
	assert.GreaterOrEqual(t, snap.PeakViewers, snap.ActiveViewers)
}

func TestPeakNonDecreasingAcrossFluctuations(t *testing.T) {
	registry := newFakeRegistry()
	store := newFakeStore()
	agg := NewAggregator(registry, store, zap.NewNop())
	sessionID := uuid.New()
	ctx := context.Background()

	lastPeak := 0
	for _, n := range []int{1, 4, 2, 6, 6, 3, 0, 5} {
		registry.set(sessionID, n)
		require.NoError(t, agg.RecordViewerChange(ctx, sessionID))
		snap, err := store.GetBySession(ctx, sessionID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, snap.PeakViewers, lastPeak)
		assert.GreaterOrEqual(t, snap.PeakViewers, snap.ActiveViewers)
		lastPeak = snap.PeakViewers
	}
	assert.Equal(t, 6, lastPeak)
}

func TestConcurrentQuestionSubmissionsLoseNoIncrements(t *testing.T) {
	registry := newFakeRegistry()
	store := newFakeStore()
	agg := NewAggregator(registry, store, zap.NewNop())
	sessionID := uuid.New()
	ctx := context.Background()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, agg.RecordQuestionSubmitted(ctx, sessionID))
		}()
	}
	wg.Wait()

	snap, err := store.GetBySession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, n, snap.QuestionsCount)
}

func TestSnapshotOverlaysLiveCount(t *testing.T) {
	registry := newFakeRegistry()
	store := newFakeStore()
	agg := NewAggregator(registry, store, zap.NewNop())
	sessionID := uuid.New()
	ctx := context.Background()

	registry.set(sessionID, 2)
	require.NoError(t, agg.RecordViewerChange(ctx, sessionID))

	// live count moved since the last persisted merge
	registry.set(sessionID, 7)
	snap, err := agg.Snapshot(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 7, snap.ActiveViewers, "registry count is authoritative")
	assert.Equal(t, 7, snap.PeakViewers, "peak is raised to at least the live count")
}

func TestSnapshotUnobservedSession(t *testing.T) {
	agg := NewAggregator(newFakeRegistry(), newFakeStore(), zap.NewNop())

	_, err := agg.Snapshot(context.Background(), uuid.New())
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}
