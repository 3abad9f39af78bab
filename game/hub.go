package game

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// envelope is the wire format for every server-to-client message.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub fans events out to the websocket connections of a room. It is
// the Broadcaster the orchestrator emits through; delivery is
// best-effort and a slow client loses messages rather than stalling
// the room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*client]struct{})}
}

func (h *Hub) register(roomId string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[roomId]
	if !ok {
		clients = make(map[*client]struct{})
		h.rooms[roomId] = clients
	}
	clients[c] = struct{}{}
}

func (h *Hub) unregister(roomId string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[roomId]
	if !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, roomId)
	}
}

// Emit broadcasts an event to every connection in the room.
func (h *Hub) Emit(roomId, event string, payload any) {
	raw, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		log.Error().Str("module", "game").Str("event", event).Err(err).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomId] {
		c.send(raw)
	}
}

// EmitTo delivers an event to a single connection, used for the
// connected handshake and per-player error feedback.
func (h *Hub) EmitTo(c *client, event string, payload any) {
	raw, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		log.Error().Str("module", "game").Str("event", event).Err(err).Msg("failed to marshal event")
		return
	}
	c.send(raw)
}
