package bridge

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatamata-client/internal/observability"
)

// ConnInfo identifies one attached presentation-layer connection.
type ConnInfo struct {
	ConnID      string
	IP          string
	RequestID   string
	ConnectedAt time.Time
}

// StateEvent is the push frame telling an attached client which slice of
// synchronized state changed. The client refetches that slice over HTTP.
type StateEvent struct {
	Type  string `json:"type"`
	Scope string `json:"scope"`
}

// Hub maintains the attached websocket connections and fans state-change
// notifications out to all of them.
type Hub struct {
	conns map[*websocket.Conn]ConnInfo
	mu    sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]ConnInfo)}
}

// Add registers an attached connection.
func (h *Hub) Add(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = info
}

// Remove drops an attached connection.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// Count returns the number of attached connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast pushes a state-change notification to every attached client.
// Connections that fail to take the write are closed and dropped.
func (h *Hub) Broadcast(scope string) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(StateEvent{Type: "state", Scope: scope})
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.Remove(conn)
			observability.DecWSActive()
		}
	}
	observability.IncWSEvent(scope)
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
