package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/galeforge/tdrpg/internal/game/attribute"
	"github.com/galeforge/tdrpg/internal/model"
	"github.com/galeforge/tdrpg/internal/world"
)

func newTestServer(t *testing.T) (*httptest.Server, *Hub, *world.Arena) {
	t.Helper()
	hub := NewHub()
	arena := world.NewArena()
	srv := httptest.NewServer(NewServer(hub, arena).Handler())
	t.Cleanup(srv.Close)
	return srv, hub, arena
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing observer: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	srv, hub, _ := newTestServer(t)

	c1 := dialWS(t, srv)
	c2 := dialWS(t, srv)
	waitForClients(t, hub, 2)

	sent := Change{ObjectID: 7, Attribute: "health", Value: 42}
	hub.BroadcastChange(sent)

	for i, conn := range []*websocket.Conn{c1, c2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("client %d read: %v", i, err)
		}
		var got Change
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("client %d payload: %v", i, err)
		}
		if got != sent {
			t.Errorf("client %d got %+v, want %+v", i, got, sent)
		}
	}
}

func TestHub_EveryWriteForwarded(t *testing.T) {
	// Same value twice: two frames on the wire, never coalesced.
	srv, hub, _ := newTestServer(t)
	conn := dialWS(t, srv)
	waitForClients(t, hub, 1)

	ch := Change{ObjectID: 1, Attribute: "health", Value: 80}
	hub.BroadcastChange(ch)
	hub.BroadcastChange(ch)

	for i := 0; i < 2; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	srv, hub, _ := newTestServer(t)
	conn := dialWS(t, srv)
	waitForClients(t, hub, 1)

	conn.Close()
	// The read-drain goroutine notices and unregisters.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client not unregistered, count = %d", hub.ClientCount())
		}
		hub.BroadcastChange(Change{ObjectID: 1, Attribute: "health", Value: 1})
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_AbruptPeerLossDropsClient(t *testing.T) {
	// Kill the TCP connection without a websocket close frame: the writer
	// hits a write error, unregisters and closes its side of the
	// connection.
	srv, hub, _ := newTestServer(t)
	conn := dialWS(t, srv)
	waitForClients(t, hub, 1)

	conn.UnderlyingConn().Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client not dropped after abrupt peer loss, count = %d", hub.ClientCount())
		}
		hub.BroadcastChange(Change{ObjectID: 1, Attribute: "health", Value: 1})
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBootstrap_ReturnsCurrentState(t *testing.T) {
	srv, _, arena := newTestServer(t)

	c := model.NewCharacter(3, "alice", 9)
	health := attribute.Intern("health")
	c.Attributes().RegisterAttribute(health, 75, 0)
	arena.Add(c)

	resp, err := http.Get(srv.URL + "/bootstrap")
	if err != nil {
		t.Fatalf("GET /bootstrap: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var chars []bootstrapCharacter
	if err := json.NewDecoder(resp.Body).Decode(&chars); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(chars) != 1 {
		t.Fatalf("characters = %d, want 1", len(chars))
	}
	if chars[0].ObjectID != 3 || chars[0].Name != "alice" || chars[0].Level != 9 {
		t.Errorf("identity: %+v", chars[0])
	}
	if got := chars[0].Attributes["health"]; got != 75 {
		t.Errorf("health = %v, want 75", got)
	}
}

func TestBootstrap_RejectsNonGet(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/bootstrap", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /bootstrap: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}
