package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const clientSendBuffer = 32

// client is one websocket connection; all writes go through the send
// channel so the single writePump goroutine owns the connection for
// writing.
type client struct {
	userID int64
	conn   *websocket.Conn
	send   chan []byte
}

func (c *client) writePump() {
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
}

// Hub tracks live connections per user. A user may hold several
// connections (phone plus web); events fan out to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*client]struct{}
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[int64]map[*client]struct{}),
		log:     log,
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[c.userID]; ok {
		if _, ok := conns[c]; ok {
			delete(conns, c)
			close(c.send)
		}
		if len(conns) == 0 {
			delete(h.clients, c.userID)
		}
	}
}

// SendToUser delivers the event to every live connection of the user.
// A slow connection gets dropped rather than blocking the rest.
func (h *Hub) SendToUser(userID int64, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		if h.log != nil {
			h.log.Error("marshal ws event", zap.Error(err))
		}
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[userID] {
		select {
		case c.send <- payload:
		default:
			if h.log != nil {
				h.log.Warn("ws send buffer full, dropping event", zap.Int64("user_id", userID))
			}
		}
	}
}

// Online reports whether the user has at least one live connection.
func (h *Hub) Online(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}
