// Package observer streams committed attribute writes to connected
// websocket clients. The hub forwards every write it is handed — it never
// batches or deduplicates, matching the replication contract: observers
// must see authoritative corrections even when the value did not move.
package observer

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Change is one committed attribute write.
type Change struct {
	ObjectID  uint32  `json:"object_id"`
	Attribute string  `json:"attribute"`
	Value     float64 `json:"value"`
}

const sendBuffer = 256

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans out attribute changes to all connected observers. Slow clients
// are dropped rather than allowed to stall the simulation tick.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// ClientCount returns the number of connected observers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastChange sends one committed write to every connected observer.
// Called for every write, including same-value rewrites.
func (h *Hub) BroadcastChange(ch Change) {
	payload, err := json.Marshal(ch)
	if err != nil {
		slog.Error("marshaling attribute change", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slog.Warn("dropping slow observer client")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// register adds a connection and starts its writer goroutine.
func (h *Hub) register(conn *websocket.Conn) *client {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go func() {
		defer conn.Close()
		for payload := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.unregister(c)
				return
			}
		}
	}()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}
