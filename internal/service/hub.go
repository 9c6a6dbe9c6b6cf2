package service

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/codeshare-labs/codeshare-api/internal/dto"
	"github.com/codeshare-labs/codeshare-api/internal/observability"
)

const hubSendBufferSize = 64

// Broadcaster publishes state-change events to every connected observer.
// Mutating services depend on this interface rather than on the transport,
// so tests can substitute a recording fake. A store write and the event it
// triggers run together inside Commit so connecting clients observe them as
// one step.
type Broadcaster interface {
	Publish(event dto.Event)
	Commit(fn func() error) error
}

// Hub fans events out to all connected realtime clients.
//
// Ordering: two locks cooperate. The state lock serializes committed
// mutations (store write followed by publish, via Commit) against client
// attachment, so a connect snapshot reflects exactly the mutations whose
// events already fired. The client mutex orders attachment against
// individual publishes; the connect-time snapshot is built and enqueued
// while both are held. Any event published before a client attached is
// reflected in its snapshot and never delivered live; any event published
// after is delivered live exactly once, in publish order.
type Hub struct {
	state   sync.RWMutex
	mu      sync.Mutex
	clients map[*hubClient]struct{}
	logger  zerolog.Logger
}

type hubClient struct {
	conn    *websocket.Conn
	send    chan dto.Event
	closed  chan struct{}
	once    sync.Once
	hub     *Hub
	onClose func()
}

// NewHub builds an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*hubClient]struct{}),
		logger:  logger.With().Str("component", "realtime_hub").Logger(),
	}
}

// Publish delivers the event to every connected client. Delivery is
// best-effort per client: a slow consumer's event is dropped rather than
// blocking the fan-out, and a dead connection never fails the mutation that
// triggered the event.
func (h *Hub) Publish(event dto.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	observability.BroadcastEvents().WithLabelValues(event.Type).Inc()

	for client := range h.clients {
		select {
		case client.send <- event:
		default:
			h.logger.Warn().Str("event_type", event.Type).Msg("dropping event for slow realtime client")
		}
	}
}

// Commit runs fn while client attachment is paused. Mutations that write to
// the store and then publish run inside Commit, so a connecting client can
// never see the write in its snapshot and still receive the event live.
func (h *Hub) Commit(fn func() error) error {
	h.state.Lock()
	defer h.state.Unlock()

	return fn()
}

// ServeConnection attaches the websocket connection to the hub and blocks
// until it closes. The snapshot callback runs with in-flight commits drained
// and publishes held off, so its result is consistent with the live stream
// that follows. onMessage fires for every inbound frame, onClose exactly
// once when the connection ends.
func (h *Hub) ServeConnection(conn *websocket.Conn, snapshot func() (dto.Event, error), onMessage func(), onClose func()) {
	client := &hubClient{
		conn:    conn,
		send:    make(chan dto.Event, hubSendBufferSize),
		closed:  make(chan struct{}),
		hub:     h,
		onClose: onClose,
	}

	h.state.RLock()
	h.mu.Lock()
	event, err := snapshot()
	if err != nil {
		h.mu.Unlock()
		h.state.RUnlock()
		h.logger.Error().Err(err).Msg("failed to build connect snapshot")
		_ = conn.Close()
		if onClose != nil {
			onClose()
		}
		return
	}
	// The send channel is fresh, so this enqueue cannot block and is
	// guaranteed to precede any published event.
	client.send <- event
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.state.RUnlock()

	observability.RealtimeConnections().Inc()

	go client.writer()
	client.reader(onMessage)
	client.close()
}

func (h *Hub) detach(client *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, client)
}

// ClientCount reports the number of attached clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

func (c *hubClient) reader(onMessage func()) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		if onMessage != nil {
			onMessage()
		}
	}
}

func (c *hubClient) writer() {
	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.hub.logger.Debug().Err(err).Msg("realtime write loop terminated")
				c.close()
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.hub.logger.Debug().Err(err).Msg("realtime ping failed")
				c.close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *hubClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.hub.detach(c)
		_ = c.conn.Close()
		observability.RealtimeConnections().Dec()
		if c.onClose != nil {
			c.onClose()
		}
	})
}
