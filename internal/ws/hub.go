package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"sync"

	"portal-service/internal/models"
	"portal-service/internal/observability"
)

var ErrUnknownConnection = errors.New("unknown connection")

// Hub tracks live connections and their room memberships. Deliveries are
// queued on each connection's send buffer; a connection that cannot keep up
// is dropped instead of stalling the broadcast.
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]*Client
	rooms       map[int]map[string]*Client
	memberships map[string]map[int]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		rooms:       make(map[int]map[string]*Client),
		memberships: make(map[string]map[int]struct{}),
	}
}

// Register adds a connection with no room memberships.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	h.memberships[c.ID] = make(map[int]struct{})
}

// Unregister removes a connection and every membership it holds and closes
// its send queue. It reports whether the connection was registered.
func (h *Hub) Unregister(connID string) bool {
	h.mu.Lock()
	c, ok := h.clients[connID]
	if ok {
		for roomID := range h.memberships[connID] {
			h.removeMemberLocked(roomID, connID)
		}
		delete(h.memberships, connID)
		delete(h.clients, connID)
	}
	h.mu.Unlock()

	if ok {
		c.close()
	}
	return ok
}

// Join adds connID to roomID. Joining twice is a no-op.
func (h *Hub) Join(connID string, roomID int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return ErrUnknownConnection
	}
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[roomID] = members
	}
	members[connID] = c
	h.memberships[connID][roomID] = struct{}{}
	return nil
}

// Leave removes connID from roomID. Unknown connections and rooms are ignored.
func (h *Hub) Leave(connID string, roomID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeMemberLocked(roomID, connID)
	if rooms, ok := h.memberships[connID]; ok {
		delete(rooms, roomID)
	}
}

func (h *Hub) removeMemberLocked(roomID int, connID string) {
	if members, ok := h.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// JoinedRooms lists the rooms connID is a member of in ascending order.
func (h *Hub) JoinedRooms(connID string) []int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rooms := make([]int, 0, len(h.memberships[connID]))
	for roomID := range h.memberships[connID] {
		rooms = append(rooms, roomID)
	}
	sort.Ints(rooms)
	return rooms
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendTo delivers an event to a single connection.
func (h *Hub) SendTo(connID, event string, data any) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.deliver([]*Client{c}, event, data)
}

// BroadcastToRoom delivers an event to every member of roomID.
func (h *Hub) BroadcastToRoom(roomID int, event string, data any) {
	h.BroadcastToRoomExcept(roomID, "", event, data)
}

// BroadcastToRoomExcept delivers an event to every member of roomID other than exceptConnID.
func (h *Hub) BroadcastToRoomExcept(roomID int, exceptConnID, event string, data any) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[roomID]))
	for id, c := range h.rooms[roomID] {
		if id != exceptConnID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	h.deliver(targets, event, data)
}

// BroadcastGlobal delivers an event to every connection.
func (h *Hub) BroadcastGlobal(event string, data any) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	h.deliver(targets, event, data)
}

func (h *Hub) deliver(targets []*Client, event string, data any) {
	if len(targets) == 0 {
		return
	}
	payload, err := json.Marshal(models.OutboundEvent{Event: event, Data: data})
	if err != nil {
		log.Printf("websocket encode error event=%s: %v", event, err)
		return
	}

	for _, c := range targets {
		if c.enqueue(payload) {
			continue
		}
		log.Printf("websocket send queue full, dropping conn_id=%s user_id=%d", c.ID, c.User.ID)
		if h.Unregister(c.ID) {
			observability.IncWSDropped()
			h.publishWSError(c, "send queue full")
		}
	}
}

func (h *Hub) publishWSError(c *Client, reason string) {
	info := c.Info
	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), observability.WSRoutingKey,
		observability.NewWSEnvelope("ws_error", c.ID, info.ConnectedAt, reason, info.identity(c.User)), headers)
	observability.IncWSEvent("ws_error")
}
