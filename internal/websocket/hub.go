package websocket

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/aksjeradar/aksjeradar/internal/models"
)

// broadcastBuffer is how many messages may queue before Broadcast drops.
const broadcastBuffer = 64

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	mu sync.Mutex
	// Registered clients
	connections map[*websocket.Conn]bool

	// Messages to be broadcast to all connected clients
	broadcast chan models.Message
	done      chan struct{}
	closeOnce sync.Once

	// Upgrader for HTTP connections to WebSocket
	upgrader websocket.Upgrader
}

// NewHub creates a new hub for managing WebSocket connections
func NewHub() *Hub {
	upgrader := websocket.Upgrader{
		// Allow all origins for WebSocket connections
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return &Hub{
		connections: make(map[*websocket.Conn]bool),
		broadcast:   make(chan models.Message, broadcastBuffer),
		done:        make(chan struct{}),
		upgrader:    upgrader,
	}
}

// Run starts listening for messages to broadcast until Close
func (h *Hub) Run() {
	for {
		select {
		case msg := <-h.broadcast:
			h.send(msg)
		case <-h.done:
			h.mu.Lock()
			for c := range h.connections {
				c.Close()
				delete(h.connections, c)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) send(msg models.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.connections {
		if err := client.WriteJSON(msg); err != nil {
			log.Printf("[ws] dropping client: %v", err)
			client.Close()
			delete(h.connections, client)
		}
	}
}

// HandleWebSocket upgrades an HTTP connection to WebSocket
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade: %v", err)
		return
	}

	h.mu.Lock()
	h.connections[ws] = true
	h.mu.Unlock()

	// Read until the client goes away; incoming messages are ignored.
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.connections, ws)
			h.mu.Unlock()
			ws.Close()
		}()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast queues msg for all connected clients. It never blocks; when
// the queue is full the message is dropped.
func (h *Hub) Broadcast(msg models.Message) bool {
	select {
	case h.broadcast <- msg:
		return true
	default:
		log.Printf("[ws] broadcast queue full, dropping %s", msg.Type)
		return false
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connections)
}

// Close stops Run and disconnects every client
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}
