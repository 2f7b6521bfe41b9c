package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/equifund/backend/internal/auth"
	"github.com/equifund/backend/internal/events"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const wsWriteTimeout = 5 * time.Second

// wsConn is the part of *websocket.Conn the hub writes through.
type wsConn interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// WSHub fans action events out to every authenticated websocket client.
type WSHub struct {
	jwtSecret   string
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.RWMutex
	connections map[string][]wsConn
}

func NewWSHub(jwtSecret string, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		jwtSecret:   jwtSecret,
		subscriber:  subscriber,
		log:         log,
		connections: make(map[string][]wsConn),
	}
}

// Start subscribes to action events; delivery stops when ctx is done.
func (h *WSHub) Start(ctx context.Context) error {
	return h.subscriber.Subscribe(ctx, events.StreamActions, h.broadcast)
}

func (h *WSHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	// Writes run outside the lock.
	for _, conn := range h.snapshot() {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("websocket write failed, closing", zap.Error(err))
			// Closing ends the client's read loop, which unregisters it.
			_ = conn.Close()
		}
	}
}

func (h *WSHub) snapshot() []wsConn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []wsConn
	for _, conns := range h.connections {
		out = append(out, conns...)
	}
	return out
}

func (h *WSHub) add(subject string, conn wsConn) {
	h.mu.Lock()
	h.connections[subject] = append(h.connections[subject], conn)
	h.mu.Unlock()
}

func (h *WSHub) remove(subject string, conn wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.connections[subject]
	for i, c := range conns {
		if c == conn {
			h.connections[subject] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.connections[subject]) == 0 {
		delete(h.connections, subject)
	}
}

// Clients is the number of open connections.
func (h *WSHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.connections {
		n += len(conns)
	}
	return n
}

func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	tokenStr := conn.Query("token")
	if tokenStr == "" {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"missing token"}`))
		conn.Close()
		return
	}

	claims, err := auth.ParseJWT(h.jwtSecret, tokenStr)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid token"}`))
		conn.Close()
		return
	}

	subject := claims.Subject

	h.add(subject, conn)
	defer func() {
		h.remove(subject, conn)
		conn.Close()
	}()

	// Read loop keeps the connection alive until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
