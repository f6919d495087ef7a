// Package hub implements the live fan-out of confirmed speed bump events and
// session-scoped position updates to connected websocket clients. Delivery is
// best-effort, at-most-once: no retry, no ordering across connections, no
// persistence for clients that reconnect.
package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/roadpulse/roadpulse-backend-go/internal/models"
	"github.com/roadpulse/roadpulse-backend-go/internal/observability"
)

// ReportFunc submits a report to the aggregation engine and returns the merge
// outcome. The hub calls it for speed_bump_detected messages arriving over a
// connection.
type ReportFunc func(models.ReportRequest) (*models.MergeResult, error)

// Hub holds the set of currently connected clients and distributes messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	heartbeat time.Duration
	submit    ReportFunc
	metrics   *observability.Metrics
}

// New creates a hub. submit may be nil, in which case inbound bump reports
// are broadcast without touching the aggregation engine.
func New(heartbeat time.Duration, submit ReportFunc, metrics *observability.Metrics) *Hub {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Hub{
		clients:   make(map[*Client]struct{}),
		heartbeat: heartbeat,
		submit:    submit,
		metrics:   metrics,
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ConnectedClients.Set(float64(n))
	}
	log.Printf("[Hub] Client %s connected (%d online)", c.ID, n)
}

// unregister removes a client. Idempotent: a client may be removed by its
// read pump and its write pump without double-closing.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	close(c.send)
	if h.metrics != nil {
		h.metrics.ConnectedClients.Set(float64(n))
	}
	log.Printf("[Hub] Client %s disconnected (%d online)", c.ID, n)
}

// BroadcastGlobal sends an envelope to every connected client except the
// originating one (server-originated broadcasts pass a nil sender).
func (h *Hub) BroadcastGlobal(env models.Envelope, sender *Client) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("[Hub] Failed to marshal broadcast: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c == sender {
			continue
		}
		h.deliver(c, data)
	}
	if h.metrics != nil {
		h.metrics.BroadcastsSent.WithLabelValues("global").Inc()
	}
}

// BroadcastSession sends an envelope to every client sharing the session,
// excluding the sender. A sender never receives its own echo.
func (h *Hub) BroadcastSession(sessionID string, sender *Client, env models.Envelope) {
	if sessionID == "" {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("[Hub] Failed to marshal broadcast: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c == sender || c.SessionID() != sessionID {
			continue
		}
		h.deliver(c, data)
	}
	if h.metrics != nil {
		h.metrics.BroadcastsSent.WithLabelValues("session").Inc()
	}
}

// deliver queues data without blocking: a stalled client loses messages
// instead of stalling fan-out to everyone else.
func (h *Hub) deliver(c *Client, data []byte) {
	select {
	case c.send <- data:
	default:
		if h.metrics != nil {
			h.metrics.DroppedSends.Inc()
		}
	}
}
