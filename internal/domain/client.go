package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const clientEventBuffer = 16

// Client is the connection handle for one signaling channel. The socket is
// written to only by the client's pump goroutine, which drains Events.
type Client struct {
	ID          string
	Identity    Identity
	ConnectedAt time.Time

	mu     sync.Mutex
	closed bool
	socket *websocket.Conn
	events chan SignalMessage
}

func NewClient(identity Identity, socket *websocket.Conn) *Client {
	return &Client{
		ID:          uuid.New().String(),
		Identity:    identity,
		ConnectedAt: time.Now().UTC(),
		socket:      socket,
		events:      make(chan SignalMessage, clientEventBuffer),
	}
}

// Enqueue hands a message to the client's pump without blocking. It reports
// false when the channel is closed or the buffer is full; the caller decides
// whether the drop matters.
func (c *Client) Enqueue(event SignalMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.events <- event:
		return true
	default:
		return false
	}
}

// Events is drained by a single pump goroutine that writes to the socket.
func (c *Client) Events() <-chan SignalMessage {
	return c.events
}

// Close tears the channel down exactly once. Safe to call from the read
// loop, from an eviction, or from both concurrently.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.events)
	if c.socket != nil {
		c.socket.Close()
	}
}

func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// WriteEvent writes directly to the socket. Only the pump goroutine may use it.
func (c *Client) WriteEvent(event SignalMessage) error {
	return c.socket.WriteJSON(event)
}

// ReadEvent blocks on the socket until the next client event arrives.
func (c *Client) ReadEvent() (SignalMessage, error) {
	var event SignalMessage
	err := c.socket.ReadJSON(&event)
	return event, err
}
