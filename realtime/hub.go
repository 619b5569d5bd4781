// Package realtime fans mutation events out to clients subscribed to a
// project's channel. Delivery is best-effort and at-most-once: publishing
// snapshots the membership at call time, connections that join later receive
// nothing, and slow consumers are skipped rather than blocked on.
package realtime

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"
)

// Publisher delivers a named event with a payload to every subscriber of a
// project's channel.
type Publisher interface {
	Publish(ctx context.Context, projectID, event string, payload any) error
}

// Event is the wire shape delivered to subscribers and carried across the
// redis bridge.
type Event struct {
	Project string `json:"project"`
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Hub is the in-process channel registry. Channels are created on first
// subscribe and removed when the last subscriber leaves.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{channels: make(map[string]map[*Conn]struct{})}
}

// Subscribe adds the connection to a project's channel. Idempotent.
func (h *Hub) Subscribe(c *Conn, projectID string) {
	if projectID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.channels[projectID]
	if !ok {
		subs = make(map[*Conn]struct{})
		h.channels[projectID] = subs
	}
	subs[c] = struct{}{}
}

// Unsubscribe removes the connection from a project's channel. Idempotent;
// no effect when the connection is not subscribed.
func (h *Hub) Unsubscribe(c *Conn, projectID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c, projectID)
}

// UnsubscribeAll removes the connection from every channel. Called when a
// connection closes.
func (h *Hub) UnsubscribeAll(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for projectID := range h.channels {
		h.removeLocked(c, projectID)
	}
}

func (h *Hub) removeLocked(c *Conn, projectID string) {
	subs, ok := h.channels[projectID]
	if !ok {
		return
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.channels, projectID)
	}
}

// Subscribers reports the current channel membership count.
func (h *Hub) Subscribers(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[projectID])
}

// Publish delivers the event to every connection subscribed to the project
// at call time. The membership snapshot is taken under the read lock so
// subscribe/unsubscribe never wait on an in-flight publish.
func (h *Hub) Publish(_ context.Context, projectID, event string, payload any) error {
	data, err := sonic.Marshal(Event{Project: projectID, Event: event, Payload: payload})
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.channels[projectID]))
	for c := range h.channels[projectID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.trySend(data)
	}
	return nil
}
