package ws

import (
	"log/slog"
	"sync"
)

// Subscriber abstracts one live viewer connection.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub owns the set of live connections and fans events out to them. The
// mutex guards set membership only; payloads are written outside the lock so
// a connection wedged mid-write cannot stall registrations, disconnects or
// delivery bookkeeping for everyone else.
type Hub struct {
	mu      sync.Mutex
	clients map[Subscriber]struct{}
	log     *slog.Logger
}

// NewHub creates an initialized Hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[Subscriber]struct{}),
		log:     log,
	}
}

// Register sends a connection the "connected" handshake acknowledgement and
// then adds it to the live set, so no broadcast can reach it ahead of the
// ack. Registering the same handle twice is a no-op: the set dedupes, so one
// handle is always one logical viewer. A connection whose acknowledgement
// cannot be delivered is closed and never becomes live.
func (h *Hub) Register(sub Subscriber) {
	h.mu.Lock()
	if _, ok := h.clients[sub]; ok {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	ack, err := Envelope(MessageConnected, map[string]string{
		"message": "connected to the live voting stream",
	})
	if err != nil {
		h.log.Warn("failed to marshal handshake ack", "error", err)
		return
	}
	if err := sub.Send(ack); err != nil {
		h.log.Warn("handshake ack delivery failed", "error", err)
		sub.Close()
		return
	}

	h.mu.Lock()
	h.clients[sub] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a connection from the live set. Calling it for a
// connection that was already removed is a no-op.
func (h *Hub) Unregister(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, sub)
}

// Broadcast delivers the payload to every live connection independently.
// Delivery is best-effort and at-most-once: a recipient whose send fails is
// closed and removed without aborting delivery to the rest, and connections
// not live at call time never see the event.
func (h *Hub) Broadcast(payload []byte) {
	h.fanOut(payload, nil)
}

// Relay delivers an inbound client payload verbatim to every live connection
// except its origin. It performs no validation or persistence.
func (h *Hub) Relay(payload []byte, origin Subscriber) {
	h.fanOut(payload, origin)
}

// fanOut snapshots the live set and writes outside the lock. A slow or dead
// recipient surfaces as a send error (writes are deadline-bounded at the
// connection) and is closed and removed without aborting delivery to the
// rest.
func (h *Hub) fanOut(payload []byte, skip Subscriber) {
	h.mu.Lock()
	targets := make([]Subscriber, 0, len(h.clients))
	for c := range h.clients {
		if c == skip {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.Unlock()

	var failed []Subscriber
	for _, c := range targets {
		if err := c.Send(payload); err != nil {
			h.log.Warn("dropping unwritable connection", "error", err)
			failed = append(failed, c)
		}
	}
	if len(failed) == 0 {
		return
	}
	h.mu.Lock()
	for _, c := range failed {
		delete(h.clients, c)
	}
	h.mu.Unlock()
	for _, c := range failed {
		c.Close()
	}
}

// Len reports the number of live connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
