// Package websocket fans change events out to an account's connected
// devices. Events carry no payload beyond the entity and action; a device
// that receives one reloads its local store instead of merging.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Event is a change notification sent to the other devices of the account
// that made the change.
type Event struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
}

// NewEvent builds an Event with Type derived from entity and action.
func NewEvent(entity, action, id string) Event {
	return Event{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
	}
}

// Hub tracks connected devices grouped by account.
type Hub struct {
	mu      sync.RWMutex
	devices map[string]map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		devices: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a device connection under its account.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.devices[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.devices[c.userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a device connection and closes its send queue. The last
// device of an account removes the account's bucket.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.devices[c.userID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.devices, c.userID)
		}
	}
	h.mu.Unlock()
}

// Broadcast delivers the event to every device of the given account. A
// device with a full queue is skipped; it catches up on its next reload.
func (h *Hub) Broadcast(userID string, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.devices[userID] {
		select {
		case c.send <- data:
		default:
		}
	}
}

// ClientCount returns the number of connected devices across all accounts.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.devices {
		n += len(set)
	}
	return n
}
