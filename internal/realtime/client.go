package realtime

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS policy is permissive by default; restrict in production
	},
}

var errSendBufferFull = errors.New("send buffer full")

// Client is a single viewer WebSocket connection attached to a session.
type Client struct {
	ID        string
	SessionID uuid.UUID
	Username  string
	hub       *Hub
	conn      *websocket.Conn
	send      chan Envelope
	logger    *zap.Logger
}

// Deliver implements Sink. Non-blocking: when the send buffer is full the
// envelope is dropped for this connection only, and the client reconciles by
// re-fetching the question list.
func (c *Client) Deliver(msg Envelope) error {
	select {
	case c.send <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

// ServeWs handles the WebSocket upgrade and runs the client loop.
// Query params: session_id (required), username (optional).
func ServeWs(hub *Hub, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionIDStr := c.Query("session_id")
		if sessionIDStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id required"})
			return
		}
		sessionID, err := uuid.Parse(sessionIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session_id"})
			return
		}
		ok, err := hub.SessionExists(c.Request.Context(), sessionID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			Username:  c.DefaultQuery("username", ""),
			hub:       hub,
			conn:      conn,
			send:      make(chan Envelope, 256),
			logger:    logger,
		}
		if err := hub.Attach(c.Request.Context(), sessionID, client.ID, client); err != nil {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session not found"))
			_ = conn.Close()
			return
		}
		go client.writePump()
		client.readPump()
	}
}

// readPump drains incoming frames to keep the read deadline fresh. Viewers
// submit questions over REST, so inbound payloads are ignored; the loop exists
// to detect disconnects. A client that stops answering pings exceeds the read
// deadline and is detached here, so active counts cannot inflate.
func (c *Client) readPump() {
	defer func() {
		c.hub.Detach(c.SessionID, c.ID)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
