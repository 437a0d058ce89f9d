// Package realtime fans live notifications out to every open connection a
// user has. Connections are process-local; nothing here is persisted, and a
// connection that drops mid-turn simply misses the rest of that turn.
package realtime

import (
	"sync"

	"github.com/hireloop/hireloop/internal/idgen"
)

// Envelope is the wire format of every live message. IDs are ULIDs, so a
// client can order envelopes from several sockets by ID alone.
type Envelope struct {
	ID          string         `json:"id"`
	MessageType string         `json:"messageType"`
	Data        map[string]any `json:"data"`
}

// Conn is one live client connection. Envelopes are delivered through a
// buffered channel; a slow consumer drops messages rather than stalling
// publishers.
type Conn struct {
	UserID string
	ch     chan Envelope
}

// Recv yields envelopes for this connection until it is unregistered.
func (c *Conn) Recv() <-chan Envelope {
	return c.ch
}

type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: map[string]map[*Conn]struct{}{}}
}

// Register adds a connection for the user. Multiple connections per user
// (multiple open tabs) each receive every notification independently.
func (h *Hub) Register(userID string) *Conn {
	conn := &Conn{UserID: userID, ch: make(chan Envelope, 64)}
	h.mu.Lock()
	set, ok := h.conns[userID]
	if !ok {
		set = map[*Conn]struct{}{}
		h.conns[userID] = set
	}
	set[conn] = struct{}{}
	h.mu.Unlock()
	return conn
}

// Unregister removes the connection and closes its channel. Safe to call
// more than once.
func (h *Hub) Unregister(conn *Conn) {
	if conn == nil {
		return
	}
	h.mu.Lock()
	set, ok := h.conns[conn.UserID]
	if ok {
		if _, present := set[conn]; present {
			delete(set, conn)
			close(conn.ch)
		}
		if len(set) == 0 {
			delete(h.conns, conn.UserID)
		}
	}
	h.mu.Unlock()
}

// BroadcastToUsers delivers the envelope to every live connection of every
// listed user. Users with no connections are skipped; publishing to nobody is
// a no-op, not an error.
func (h *Hub) BroadcastToUsers(userIDs []string, env Envelope) {
	if env.ID == "" {
		env.ID = idgen.Ordered()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, userID := range userIDs {
		for conn := range h.conns[userID] {
			select {
			case conn.ch <- env:
			default:
				// Drop if the connection is slow.
			}
		}
	}
}

// ConnCount reports the number of live connections for the user.
func (h *Hub) ConnCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}
