package telemetry

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// MessageType indicates the websocket message format.
type MessageType int

const (
	// JSONMessage is a JSON-encoded message.
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data (e.g., JPEG snapshots).
	BinaryMessage
)

// Message is one payload to broadcast to websocket clients.
type Message struct {
	Type MessageType
	Data []byte
}

// Hub fans out messages to the connected websocket clients using the
// channel-based broadcast pattern. A slow client is dropped rather
// than allowed to stall the loop's telemetry path.
type Hub struct {
	name string

	clients    map[*client]bool
	broadcast  chan Message
	register   chan *client
	unregister chan *client

	mu     sync.RWMutex
	logger *slog.Logger
}

// NewHub creates a broadcast hub.
func NewHub(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     slog.Default().With("component", "telemetry.hub", "hub", name),
	}
}

// Run drives the hub's fan-out loop. Call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client connected", "client_id", c.id, "total", count)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", "client_id", c.id, "remaining", count)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Buffer full: client is too slow, drop it.
					close(c.send)
					delete(h.clients, c)
					h.logger.Warn("dropped slow client", "client_id", c.id)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues a message for all clients, dropping it if the
// broadcast channel is full.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// BroadcastJSON encodes and broadcasts a JSON message.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(Message{Type: JSONMessage, Data: data})
	return nil
}

// BroadcastBinary broadcasts binary data.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(Message{Type: BinaryMessage, Data: data})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
