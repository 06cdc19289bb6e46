package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-realcam/pkg/protocol"
)

// Hub maintains the set of attached dashboards and broadcasts messages to them.
// New clients receive the last JSON message first, so a dashboard shows
// the current state without waiting for the next frame.
type Hub struct {
	// Name for logging
	name   string
	logger *slog.Logger

	// Attached viewers
	clients map[*viewer]bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Attach and detach requests from viewers
	register   chan *viewer
	unregister chan *viewer

	// Guards clients and last
	mu   sync.RWMutex
	last *Message

	running chan struct{}
	done    chan struct{}
}

// New creates a new Hub. A nil logger uses slog.Default().
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:       name,
		logger:     logger.With("hub", name),
		clients:    make(map[*viewer]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *viewer),
		unregister: make(chan *viewer),
		running:    make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done.
// This should be called in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	close(h.running)
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.queue)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if h.last != nil {
				client.queue <- *h.last
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", "clients", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.queue)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", "clients", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			if message.Type == JSONMessage {
				m := message
				h.last = &m
			}
			for client := range h.clients {
				select {
				case client.queue <- message:
				default:
					// too slow; drop the client
					close(client.queue)
					delete(h.clients, client)
					h.logger.Warn("dropped slow client")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// BroadcastJSON encodes and broadcasts a JSON message
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// BroadcastProtocol broadcasts a protocol envelope
func (h *Hub) BroadcastProtocol(msg *protocol.Message) error {
	m, err := FromProtocol(msg)
	if err != nil {
		return err
	}
	h.Broadcast(m)
	return nil
}

// BroadcastBinary broadcasts binary data (e.g., preview frames)
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// Handler returns a fiber websocket handler that attaches each
// connection as a viewer. Mount it behind websocket.IsWebSocketUpgrade.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		attach(h, c).serve()
	})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning returns whether Run has been started
func (h *Hub) IsRunning() bool {
	select {
	case <-h.running:
		return true
	default:
		return false
	}
}
