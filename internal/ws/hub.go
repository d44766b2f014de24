package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"reclaim/internal/observability"
)

// Hub maintains active websocket rooms.
type Hub struct {
	rooms map[string]map[*Client]struct{}
	mu    sync.Mutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Subscribe adds a client to a room.
func (h *Hub) Subscribe(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
}

// Unsubscribe removes a client from a room and closes its send queue.
// Unsubscribing twice is harmless.
func (h *Hub) Unsubscribe(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(room, c)
}

func (h *Hub) removeLocked(room string, c *Client) bool {
	conns, ok := h.rooms[room]
	if !ok {
		return false
	}
	if _, ok := conns[c]; !ok {
		return false
	}
	delete(conns, c)
	close(c.send)
	if len(conns) == 0 {
		delete(h.rooms, room)
	}
	return true
}

// Broadcast encodes frame once and queues it for every subscriber of room,
// the sender's own connection included. The hub lock is held while queueing
// so all subscribers observe frames of a room in the same order. Subscribers
// whose queue is full are dropped. It returns the number of connections the
// frame was queued for; zero subscribers is not an error.
func (h *Hub) Broadcast(room string, frame any) (int, error) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return 0, fmt.Errorf("encode frame: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for c := range h.rooms[room] {
		select {
		case c.send <- payload:
			delivered++
		default:
			log.Printf("websocket send queue full room=%s conn_id=%s, dropping", room, c.info.ConnID)
			observability.IncBroadcastDropped()
			h.removeLocked(room, c)
		}
	}
	return delivered, nil
}

// SendTo queues a frame for a single client if it is still subscribed.
func (h *Hub) SendTo(c *Client, frame any) bool {
	payload, err := json.Marshal(frame)
	if err != nil {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[c.room][c]; !ok {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// RoomSize reports how many connections are subscribed to room.
func (h *Hub) RoomSize(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}
