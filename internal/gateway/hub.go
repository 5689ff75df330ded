package gateway

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Message is the frame pushed to browser clients.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Hub tracks live connections and their delivery groups. Groups come in two
// flavors: a private per-user group every connection joins at upgrade time,
// and per-room groups joined after a match is found.
type Hub struct {
	mu      sync.RWMutex
	groups  map[string]map[*Client]bool
	members map[*Client]map[string]bool
}

func NewHub() *Hub {
	return &Hub{
		groups:  make(map[string]map[*Client]bool),
		members: make(map[*Client]map[string]bool),
	}
}

func UserGroup(userID string) string {
	return "user:" + userID
}

func RoomGroup(room string) string {
	return "room:" + room
}

func (h *Hub) Join(group string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.groups[group] == nil {
		h.groups[group] = make(map[*Client]bool)
	}
	h.groups[group][client] = true

	if h.members[client] == nil {
		h.members[client] = make(map[string]bool)
	}
	h.members[client][group] = true
}

func (h *Hub) Leave(group string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(group, client)
}

// Remove drops the client from every group it joined.
func (h *Hub) Remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for group := range h.members[client] {
		h.leaveLocked(group, client)
	}
	delete(h.members, client)
}

func (h *Hub) leaveLocked(group string, client *Client) {
	if clients, ok := h.groups[group]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.groups, group)
		}
	}
	if groups, ok := h.members[client]; ok {
		delete(groups, group)
	}
}

// Publish fans a message out to every connection in the group. Slow
// consumers get dropped frames, not a blocked hub.
func (h *Hub) Publish(group, event string, data any) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal gateway message")
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.groups[group]))
	for client := range h.groups[group] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- payload:
		default:
			log.Warn().Str("group", group).Str("user", client.UserID).Msg("client send buffer full, dropping event")
		}
	}
}

// GroupSize reports how many connections a group currently has.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
