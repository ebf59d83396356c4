// Package stream pushes live portfolio updates to WebSocket clients.
package stream

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quantfolio/portfolio-service/internal/metrics"
	"github.com/quantfolio/portfolio-service/internal/portfolio"
)

// Message type constants
const (
	MessageTypePortfolioSummary = "portfolio_summary"
	MessageTypePositionUpdated  = "position_updated"
)

// Connection keepalive timing.
const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

// Message is the JSON envelope sent to WebSocket clients.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Hub manages WebSocket connections and broadcasts portfolio updates
// to all connected clients.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run starts the hub's event loop and blocks until the context is
// cancelled, closing every client on the way out. Must be called in a
// goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			metrics.WebSocketClients.Set(0)
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(total))
			log.Printf("WebSocket client connected (%d total)", total)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(total))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			metrics.WebSocketClients.Set(float64(len(h.clients)))
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to all connected clients. Messages are
// dropped when the buffer is full rather than blocking the caller.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

// BroadcastSummary pushes a refreshed portfolio summary to every
// connected client.
func (h *Hub) BroadcastSummary(summary portfolio.Summary) {
	h.Broadcast(Message{Type: MessageTypePortfolioSummary, Payload: summary})
}

// BroadcastPositionUpdated announces that one symbol's position
// changed and clients should refresh their views.
func (h *Hub) BroadcastPositionUpdated(symbol string) {
	h.Broadcast(Message{Type: MessageTypePositionUpdated, Payload: map[string]string{"symbol": symbol}})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// The dashboard is served from a different origin in development.
		return true
	},
}

// ServeWS handles WebSocket upgrade requests.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.register <- conn

	// Read pump: keep the connection alive and detect disconnects.
	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	go h.pingLoop(conn, pingPeriod)
}

// pingLoop keeps the connection alive through proxies. The broadcast
// loop writes data frames to the same connection concurrently, so
// pings must go out as control frames via WriteControl, the only write
// gorilla/websocket allows alongside another writer.
func (h *Hub) pingLoop(conn *websocket.Conn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		h.mu.RLock()
		_, ok := h.clients[conn]
		h.mu.RUnlock()
		if !ok {
			return
		}
		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			return
		}
	}
}
