package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Entities whose snapshots can change. A signal carries no payload; receivers
// re-read the full snapshot over the API.
const (
	EntityMembers       = "members"
	EntityAdminAccounts = "admin_accounts"
)

// Signal is the change notification broadcast to all clients.
type Signal struct {
	Entity string `json:"entity"`
}

// Hub maintains the set of active WebSocket clients and fans signals out.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Notify broadcasts a change signal for the given entity to all clients.
func (h *Hub) Notify(entity string) {
	data, err := json.Marshal(Signal{Entity: entity})
	if err != nil {
		h.logger.Error("marshal signal", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop the signal to avoid blocking
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
