package server

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// wsMessage is the envelope pushed to visualization clients.
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The viz frontend may be served from a different origin during
	// development; the API binds to loopback by default.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// hub tracks connected WebSocket clients. Writes are serialized by the
// mutex — gorilla allows at most one concurrent writer per connection.
type hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func newHub() *hub {
	return &hub{conns: make(map[*websocket.Conn]bool)}
}

func (h *hub) add(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = true
}

func (h *hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// broadcast sends a message to every connected client, dropping connections
// that fail to write.
func (h *hub) broadcast(msg wsMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		if err := c.WriteJSON(msg); err != nil {
			c.Close()
			delete(h.conns, c)
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}

	s.hub.add(conn)

	// Send the current subgraph immediately so the client can render
	// without waiting for the first navigation.
	if payload, err := s.graphPayload(); err == nil {
		s.hub.mu.Lock()
		if err := conn.WriteJSON(wsMessage{Type: "initial_data", Data: payload}); err != nil {
			log.Printf("websocket initial data: %v", err)
		}
		s.hub.mu.Unlock()
	}

	// Reader loop: the client only sends pings; discard until the
	// connection closes.
	go func() {
		defer func() {
			s.hub.remove(conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
