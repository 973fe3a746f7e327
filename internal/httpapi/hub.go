package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HSfac/token-buyer-analyze/internal/progress"
)

const writeTimeout = 5 * time.Second

// Hub fans analysis progress events out to connected websocket clients. It
// implements progress.Sink, so an Analyzer can publish straight into it.
type Hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
	logger   *log.Logger
}

var _ progress.Sink = (*Hub)(nil)

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		clients:  make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger,
	}
}

// Publish sends the event to every connected client. Clients that fail the
// write are dropped; a stalled consumer is bounded by the write deadline.
func (h *Hub) Publish(e progress.Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		h.logger.Printf("marshal progress event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Printf("websocket write: %v", err)
			c.Close()
			delete(h.clients, c)
		}
	}
}

// Handler upgrades the request to a websocket connection and registers it
// with the hub. The read loop exists only to notice the peer going away.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Printf("websocket upgrade: %v", err)
			return
		}

		h.mu.Lock()
		h.clients[conn] = struct{}{}
		h.mu.Unlock()

		go func() {
			defer func() {
				h.mu.Lock()
				delete(h.clients, conn)
				h.mu.Unlock()
				conn.Close()
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.Close()
		delete(h.clients, c)
	}
}
