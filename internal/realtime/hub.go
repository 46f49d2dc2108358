package realtime

import (
	"encoding/json"

	"github.com/google/uuid"

	"linkhub/internal/domain"
	"linkhub/pkg/logger"
)

type envelope struct {
	userID uuid.UUID
	data   []byte
}

// Hub owns every realtime connection in the process, grouped into per-user
// rooms (all connections for one identity). A single goroutine running Run
// serializes room membership changes and deliveries, so emits for one
// conversation are pushed in the order their REST calls handed them over.
// Delivery is at-most-once: a slow client is dropped, never buffered
// indefinitely, and there is no replay.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	emit       chan envelope

	rooms    map[uuid.UUID]map[*Client]bool
	presence *PresenceRegistry
	log      logger.Logger
}

func NewHub(presence *PresenceRegistry, log logger.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		emit:       make(chan envelope, 256),
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		presence:   presence,
		log:        log,
	}
}

func (h *Hub) Presence() *PresenceRegistry {
	return h.presence
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case env := <-h.emit:
			h.deliver(env.userID, env.data)
		}
	}
}

// EmitToUser pushes an event to every connection in the user's room.
// Fire-and-forget: marshalling errors are logged and the caller never sees
// delivery failures.
func (h *Hub) EmitToUser(userID uuid.UUID, event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("Failed to marshal event", "event", event.Type, "error", err)
		return
	}
	h.emit <- envelope{userID: userID, data: data}
}

func (h *Hub) addClient(client *Client) {
	room, ok := h.rooms[client.userID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[client.userID] = room
	}
	room[client] = true

	if h.presence.MarkOnline(client.userID) {
		h.announcePresence(client.userID, true)
	}
}

func (h *Hub) removeClient(client *Client) {
	room, ok := h.rooms[client.userID]
	if !ok || !room[client] {
		return
	}
	delete(room, client)
	close(client.send)
	if len(room) == 0 {
		delete(h.rooms, client.userID)
	}

	if h.presence.MarkOffline(client.userID) {
		h.announcePresence(client.userID, false)
	}
}

// announcePresence tells every other room about an online/offline edge.
func (h *Hub) announcePresence(userID uuid.UUID, online bool) {
	event := domain.Event{
		Type:    domain.EventPresenceChanged,
		Payload: domain.PresencePayload{UserID: userID, Online: online},
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("Failed to marshal presence event", "error", err)
		return
	}
	for id := range h.rooms {
		if id == userID {
			continue
		}
		h.deliver(id, data)
	}
}

func (h *Hub) deliver(userID uuid.UUID, data []byte) {
	room, ok := h.rooms[userID]
	if !ok {
		return
	}
	for client := range room {
		select {
		case client.send <- data:
		default:
			// Slow consumer: drop the connection rather than stall the hub.
			delete(room, client)
			close(client.send)
			if len(room) == 0 {
				delete(h.rooms, userID)
			}
			if h.presence.MarkOffline(client.userID) {
				h.announcePresence(client.userID, false)
			}
		}
	}
}
