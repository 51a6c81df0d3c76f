package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// EventNotificationCreated is the event name clients subscribe to.
const EventNotificationCreated = "OnNotificationCreated"

const (
	writeTimeout = 5 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// envelope is the wire frame sent over a websocket channel.
type envelope struct {
	Event string `json:"event"`
	Data  Event  `json:"data"`
}

// WSChannel adapts one websocket connection to the Channel interface.
type WSChannel struct {
	id   string
	conn *websocket.Conn

	// gorilla permits a single concurrent writer per connection.
	writeMu sync.Mutex
}

// NewWSChannel wraps an upgraded websocket connection.
func NewWSChannel(conn *websocket.Conn) *WSChannel {
	return &WSChannel{
		id:   uuid.NewString(),
		conn: conn,
	}
}

// ID returns the channel's connection id.
func (c *WSChannel) ID() string {
	return c.id
}

// Send writes one event frame. A connection too slow to accept the
// frame within the write timeout fails this delivery only.
func (c *WSChannel) Send(ctx context.Context, event Event) error {
	data, err := json.Marshal(envelope{Event: EventNotificationCreated, Data: event})
	if err != nil {
		return fmt.Errorf("encode push event: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write push event: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (c *WSChannel) Close() error {
	return c.conn.Close()
}

// Identity resolves the authenticated user behind a request.
// The gateway wires this to its JWT middleware's context lookup.
type Identity func(r *http.Request) (uuid.UUID, bool)

// WSHandler upgrades push connections and keeps the registry in sync
// with their lifecycle. A connection joins the group of its own
// authenticated identity; the registration is dropped when the
// connection closes, cleanly or not.
type WSHandler struct {
	registry *Registry
	identity Identity
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewWSHandler creates the websocket endpoint handler.
func NewWSHandler(registry *Registry, identity Identity, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		registry: registry,
		identity: identity,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.With().Str("component", "push").Logger(),
	}
}

// ServeHTTP implements http.Handler.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	ch := NewWSChannel(conn)
	h.registry.Register(userID, ch)

	h.logger.Info().
		Str("user_id", userID.String()).
		Str("channel_id", ch.ID()).
		Msg("Push connection opened")

	go h.serve(userID, ch, conn)
}

// serve owns the connection until it closes.
func (h *WSHandler) serve(userID uuid.UUID, ch *WSChannel, conn *websocket.Conn) {
	defer func() {
		h.registry.Unregister(userID, ch.ID())
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	done := make(chan struct{})

	// Keepalive pings; a dead peer misses its pong and the read loop
	// times out.
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ch.writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
				ch.writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	// The push channel is one-directional; inbound frames are drained
	// only to observe connection health and close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			close(done)
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn().
					Err(err).
					Str("user_id", userID.String()).
					Str("channel_id", ch.ID()).
					Msg("Push connection closed unexpectedly")
			} else {
				h.logger.Debug().
					Str("user_id", userID.String()).
					Str("channel_id", ch.ID()).
					Msg("Push connection closed")
			}
			return
		}
	}
}
