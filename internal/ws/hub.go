package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/streamcart/order-pipeline/internal/orders"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
)

// Frame is what viewers receive: an event name plus the full order snapshot.
type Frame struct {
	Event string       `json:"event"`
	Order orders.Order `json:"order"`
}

// Hub fans order lifecycle events out to connected viewers. Delivery is
// best-effort: slow clients skip frames, and nothing is replayed for viewers
// that connect later.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	logger   *slog.Logger
	upgrader websocket.Upgrader
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: map[*client]struct{}{},
		logger:  logger,
		upgrader: websocket.Upgrader{
			// viewers connect from the dashboard origin; auth is out of scope
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleUpgrade upgrades the request and registers the connection until it
// drops.
func (h *Hub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	go h.writePump(cl)
	go h.readPump(cl)
}

// Broadcast pushes a frame to every connected viewer without blocking the
// caller. A full client buffer drops the frame for that client only.
func (h *Hub) Broadcast(event string, order orders.Order) {
	data, err := json.Marshal(Frame{Event: event, Order: order})
	if err != nil {
		h.logger.Error("marshal broadcast frame", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- data:
		default:
			// slow client, skip this frame
		}
	}
}

// Close disconnects all viewers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for cl := range h.clients {
		close(cl.send)
		delete(h.clients, cl)
	}
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; ok {
		close(cl.send)
		delete(h.clients, cl)
	}
}

func (h *Hub) writePump(cl *client) {
	defer cl.conn.Close()
	for data := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(cl)
			return
		}
	}
}

// readPump discards inbound frames; viewers only listen. A read error means
// the connection is gone.
func (h *Hub) readPump(cl *client) {
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			h.remove(cl)
			return
		}
	}
}
