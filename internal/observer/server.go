package observer

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/galeforge/tdrpg/internal/world"
)

// Server exposes the observer websocket endpoint and a loopback-only
// bootstrap endpoint returning the current state of every live character.
type Server struct {
	hub   *Hub
	arena *world.Arena

	upgrader websocket.Upgrader
}

// NewServer creates the observer HTTP surface around hub.
func NewServer(hub *Hub, arena *world.Arena) *Server {
	return &Server{
		hub:   hub,
		arena: arena,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Handler returns the mux serving /ws and /bootstrap.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/bootstrap", s.handleBootstrap)
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := s.hub.register(conn)
	slog.Debug("observer connected", "remote", conn.RemoteAddr().String())

	// Observers are read-only; drain until the peer goes away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.hub.unregister(c)
				return
			}
		}
	}()
}

// bootstrapCharacter is the full state of one character at bootstrap time.
type bootstrapCharacter struct {
	ObjectID   uint32             `json:"object_id"`
	Name       string             `json:"name"`
	Level      int32              `json:"level"`
	Attributes map[string]float64 `json:"attributes"` // current values
}

func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	chars := s.arena.Characters()
	out := make([]bootstrapCharacter, 0, len(chars))
	for _, c := range chars {
		attrs := make(map[string]float64)
		store := c.Attributes()
		for _, id := range store.IDs() {
			attrs[id.Name()] = store.Current(id)
		}
		out = append(out, bootstrapCharacter{
			ObjectID:   c.ObjectID(),
			Name:       c.Name(),
			Level:      c.Level(),
			Attributes: attrs,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		slog.Warn("writing bootstrap response", "err", err)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
