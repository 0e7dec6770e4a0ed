package analytics

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventstage/backend/internal/models"
)

// Registry exposes the live connection count; the in-memory hub is the
// authoritative source, the stored active_viewers column only caches it.
type Registry interface {
	ActiveCount(sessionID uuid.UUID) int
}

// Store is the persistence surface the aggregator writes through. Every
// method must be atomic per session row.
type Store interface {
	EnsureSnapshot(ctx context.Context, sessionID uuid.UUID) error
	MergeViewerCount(ctx context.Context, sessionID uuid.UUID, active int) error
	IncrementQuestions(ctx context.Context, sessionID uuid.UUID) error
	RecalculateAvgWatchTime(ctx context.Context, sessionID uuid.UUID) error
	GetBySession(ctx context.Context, sessionID uuid.UUID) (*models.AnalyticsSnapshot, error)
}

// Aggregator derives per-session viewer and engagement metrics and persists
// peak/count updates. All writers for a session go through here; no caller
// mutates stored analytics fields directly.
type Aggregator struct {
	registry Registry
	store    Store
	logger   *zap.Logger
}

// NewAggregator creates an analytics aggregator.
func NewAggregator(registry Registry, store Store, logger *zap.Logger) *Aggregator {
	return &Aggregator{registry: registry, store: store, logger: logger}
}

// RecordViewerChange refreshes the cached active count and merges the peak.
// Called on every attach and detach.
func (a *Aggregator) RecordViewerChange(ctx context.Context, sessionID uuid.UUID) error {
	active := a.registry.ActiveCount(sessionID)
	if err := a.store.EnsureSnapshot(ctx, sessionID); err != nil {
		return fmt.Errorf("ensure snapshot: %w", err)
	}
	if err := a.store.MergeViewerCount(ctx, sessionID, active); err != nil {
		return fmt.Errorf("merge viewer count: %w", err)
	}
	return nil
}

// RecordQuestionSubmitted increments questions_count by exactly one.
func (a *Aggregator) RecordQuestionSubmitted(ctx context.Context, sessionID uuid.UUID) error {
	if err := a.store.EnsureSnapshot(ctx, sessionID); err != nil {
		return fmt.Errorf("ensure snapshot: %w", err)
	}
	if err := a.store.IncrementQuestions(ctx, sessionID); err != nil {
		return fmt.Errorf("increment questions: %w", err)
	}
	return nil
}

// RecordWatchTime recomputes avg_watch_time from closed viewer log rows.
// Called after a viewer detaches.
func (a *Aggregator) RecordWatchTime(ctx context.Context, sessionID uuid.UUID) error {
	if err := a.store.RecalculateAvgWatchTime(ctx, sessionID); err != nil {
		return fmt.Errorf("recalculate watch time: %w", err)
	}
	return nil
}

// Snapshot returns the latest snapshot with the live registry count overlaid
// on the stored active_viewers cache. The peak is raised to at least the live
// count so the peak >= active invariant holds even before the next merge
// lands in storage.
func (a *Aggregator) Snapshot(ctx context.Context, sessionID uuid.UUID) (*models.AnalyticsSnapshot, error) {
	s, err := a.store.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	live := a.registry.ActiveCount(sessionID)
	s.ActiveViewers = live
	if s.PeakViewers < live {
		s.PeakViewers = live
	}
	return s, nil
}
