package live

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is one progress push to dashboard clients.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub fans out job progress events to the websocket clients watching a chat.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*websocket.Conn]bool)}
}

// Serve upgrades the request and keeps the connection registered for the chat
// until the client goes away. The read loop only exists to observe the close.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, chatID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("Websocket upgrade failed for chat %s: %v", chatID, err)
		return
	}

	h.mu.Lock()
	if h.clients[chatID] == nil {
		h.clients[chatID] = make(map[*websocket.Conn]bool)
	}
	h.clients[chatID][conn] = true
	h.mu.Unlock()

	go func() {
		defer h.drop(chatID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends an event to every client watching the chat. Clients that
// fail to accept the write are dropped.
func (h *Hub) Broadcast(chatID, eventType string, data interface{}) {
	event := Event{Type: eventType, Data: data, Timestamp: time.Now()}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients[chatID]))
	for conn := range h.clients[chatID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			h.drop(chatID, conn)
		}
	}
}

func (h *Hub) drop(chatID string, conn *websocket.Conn) {
	h.mu.Lock()
	if conns, ok := h.clients[chatID]; ok {
		if conns[conn] {
			delete(conns, conn)
			conn.Close()
			if len(conns) == 0 {
				delete(h.clients, chatID)
			}
		}
	}
	h.mu.Unlock()
}
