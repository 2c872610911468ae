package http

import (
	"sync"

	"mathquiz-service/internal/domain"

	"github.com/rs/zerolog"
)

// sendBufferSize bounds how far a slow client may fall behind before frames are dropped.
const sendBufferSize = 64

// Hub is the connection-id-indexed transport map. It implements app.Broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  zerolog.Logger
}

type client struct {
	id     string
	send   chan outboundMessage[any]
	mu     sync.Mutex
	closed bool
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		logger:  logger,
	}
}

// Unicast queues an event for a single connection. Unknown ids are ignored.
func (h *Hub) Unicast(id string, event domain.EventType, payload any) {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.deliver(c, outboundMessage[any]{Type: string(event), Payload: payload})
}

// BroadcastAll queues an event for every connection.
func (h *Hub) BroadcastAll(event domain.EventType, payload any) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	msg := outboundMessage[any]{Type: string(event), Payload: payload}
	for _, c := range targets {
		h.deliver(c, msg)
	}
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(id string) *client {
	c := &client{id: id, send: make(chan outboundMessage[any], sendBufferSize)}
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

func (h *Hub) deliver(c *client, msg outboundMessage[any]) {
	if !c.enqueue(msg) {
		h.logger.Warn().Str("connection_id", c.id).Str("type", msg.Type).Msg("send buffer full, message dropped")
	}
}

// enqueue never blocks; it reports false only when a frame was dropped.
func (c *client) enqueue(msg outboundMessage[any]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
