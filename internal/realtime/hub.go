package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventstage/backend/internal/models"
)

const (
	// PingInterval and PongWait are used for connection heartbeat, in seconds.
	// A client that misses the pong window is reaped and detached.
	PingInterval = 30
	PongWait     = 60

	// EventQuestion and EventViewerCount are the envelope event names pushed
	// to attached connections.
	EventQuestion    = "question"
	EventViewerCount = "viewer_count"
)

// ErrSessionNotFound is returned by Attach when the session id does not resolve.
var ErrSessionNotFound = errors.New("session not found")

// Envelope is the message pushed to attached connections.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Sink receives envelopes for a single connection. Delivery errors are
// isolated to that connection and never abort a broadcast.
type Sink interface {
	Deliver(Envelope) error
}

// SessionChecker verifies that a session id resolves before attach.
type SessionChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// RedisPublisher publishes session events for cross-instance broadcast.
type RedisPublisher interface {
	PublishSessionEvent(sessionID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to a session's channel and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeSession(sessionID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// AudienceChangeHandler is called after every attach/detach with the new
// active count, so stored analytics never serve a stale viewer figure.
type AudienceChangeHandler func(sessionID uuid.UUID, count int)

// ViewerJoinHandler and ViewerLeaveHandler record per-connection attachment
// windows for watch-time accounting.
type (
	ViewerJoinHandler  func(sessionID uuid.UUID, connectionID string)
	ViewerLeaveHandler func(sessionID uuid.UUID, connectionID string)
)

// Hub is the session registry and question broadcast channel: it tracks which
// viewer connections are attached to which session and fans newly submitted
// questions out to them. Entries are created on first attach and removed when
// the last connection detaches. With Redis configured, publishes go through
// the session's Redis channel so every instance delivers exactly once to its
// local connections.
type Hub struct {
	// sessionID -> connectionID -> sink
	sessions map[uuid.UUID]map[string]Sink
	subs     map[uuid.UUID]func() // cancel Redis subscription per session
	mu       sync.RWMutex

	logger   *zap.Logger
	checker  SessionChecker
	redis    RedisPublisher
	redisSub RedisSubscriber

	onAudience AudienceChangeHandler
	onJoin     ViewerJoinHandler
	onLeave    ViewerLeaveHandler
}

// NewHub creates an empty hub. redisPub/redisSub may be nil for
// single-instance deployments; broadcast is then local only.
func NewHub(logger *zap.Logger, checker SessionChecker, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		sessions: make(map[uuid.UUID]map[string]Sink),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		checker:  checker,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// SetAudienceChangeHandler sets the callback fired after every attach/detach.
func (h *Hub) SetAudienceChangeHandler(fn AudienceChangeHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onAudience = fn
}

// SetViewerLoggers sets the join/leave callbacks for watch-time accounting.
func (h *Hub) SetViewerLoggers(onJoin ViewerJoinHandler, onLeave ViewerLeaveHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onJoin = onJoin
	h.onLeave = onLeave
}

// SessionExists reports whether a session id resolves.
func (h *Hub) SessionExists(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	return h.checker.Exists(ctx, sessionID)
}

// Attach registers a connection with a session. Idempotent per connection id.
// Returns ErrSessionNotFound when the session does not exist. The first
// connection for a session starts its Redis subscription.
func (h *Hub) Attach(ctx context.Context, sessionID uuid.UUID, connectionID string, sink Sink) error {
	ok, err := h.checker.Exists(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !ok {
		return ErrSessionNotFound
	}

	h.mu.Lock()
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[string]Sink)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeSession(sessionID, func(event string, payload []byte) {
				h.broadcastLocal(sessionID, event, payload)
			})
			if err == nil {
				h.subs[sessionID] = cancel
			} else {
				h.logger.Warn("session redis subscribe failed", zap.String("session_id", sessionID.String()), zap.Error(err))
			}
		}
	}
	if _, dup := h.sessions[sessionID][connectionID]; dup {
		h.mu.Unlock()
		return nil
	}
	h.sessions[sessionID][connectionID] = sink
	count := len(h.sessions[sessionID])
	onJoin, onAudience := h.onJoin, h.onAudience
	h.mu.Unlock()

	if onJoin != nil {
		onJoin(sessionID, connectionID)
	}
	if onAudience != nil {
		onAudience(sessionID, count)
	}
	h.logger.Debug("connection attached", zap.String("connection_id", connectionID), zap.String("session_id", sessionID.String()))
	return nil
}

// Detach removes a connection from a session. No-op when already detached,
// tolerating late or duplicate detach signals from ungraceful disconnects.
// The last connection leaving tears down the session entry and its Redis
// subscription.
func (h *Hub) Detach(sessionID uuid.UUID, connectionID string) {
	h.mu.Lock()
	room, ok := h.sessions[sessionID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room[connectionID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(room, connectionID)
	count := len(room)
	if count == 0 {
		delete(h.sessions, sessionID)
		if cancel, ok := h.subs[sessionID]; ok {
			cancel()
			delete(h.subs, sessionID)
		}
	}
	onLeave, onAudience := h.onLeave, h.onAudience
	h.mu.Unlock()

	if onLeave != nil {
		onLeave(sessionID, connectionID)
	}
	if onAudience != nil {
		onAudience(sessionID, count)
	}
	h.logger.Debug("connection detached", zap.String("connection_id", connectionID), zap.String("session_id", sessionID.String()))
}

// ActiveCount returns the number of connections currently attached to a session.
func (h *Hub) ActiveCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// PublishQuestion delivers a newly persisted question to every connection
// attached to its session at call time. At-most-once, best-effort: a failing
// sink is skipped and never rolls back persistence.
func (h *Hub) PublishQuestion(sessionID uuid.UUID, q *models.Question) {
	data, err := json.Marshal(q)
	if err != nil {
		return
	}
	h.publish(sessionID, EventQuestion, data)
}

// PublishViewerCount pushes the current viewer count to a session's connections.
func (h *Hub) PublishViewerCount(sessionID uuid.UUID, count int) {
	data, err := json.Marshal(map[string]int{"count": count})
	if err != nil {
		return
	}
	h.publish(sessionID, EventViewerCount, data)
}

// publish routes through Redis when configured so the subscriber callback
// broadcasts once per instance (local clients included); otherwise it
// broadcasts locally.
func (h *Hub) publish(sessionID uuid.UUID, event string, payload []byte) {
	if h.redis != nil {
		if err := h.redis.PublishSessionEvent(sessionID, event, payload); err == nil {
			return
		}
		h.logger.Warn("redis publish failed, falling back to local broadcast",
			zap.String("session_id", sessionID.String()), zap.String("event", event))
	}
	h.broadcastLocal(sessionID, event, payload)
}

// broadcastLocal delivers to all locally attached sinks. Sinks are snapshotted
// under the read lock; delivery happens outside it so a slow sink cannot block
// attach/detach. Per-sink errors are logged and swallowed.
func (h *Hub) broadcastLocal(sessionID uuid.UUID, event string, payload []byte) {
	msg := Envelope{Event: event, Data: payload}

	h.mu.RLock()
	sinks := make([]Sink, 0, len(h.sessions[sessionID]))
	for _, s := range h.sessions[sessionID] {
		sinks = append(sinks, s)
	}
	h.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Deliver(msg); err != nil {
			h.logger.Debug("delivery skipped", zap.String("session_id", sessionID.String()), zap.Error(err))
		}
	}
}
