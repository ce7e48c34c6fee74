package ws

import (
	"sync"
	"sync/atomic"
)

type ConnState int32

const (
	StateConnecting ConnState = iota
	StateAuthorized
	StateActive
	StateClosed
)

// Client is one live connection scoped to a conversation. Its outbound queue
// is bounded; what happens on overflow depends on the frame class (see Push
// and TrySend).
type Client struct {
	ID             string
	UserID         uint
	Username       string
	IsStaff        bool
	ConversationID uint

	send      chan []byte
	state     atomic.Int32
	closeOnce sync.Once
	mu        sync.Mutex // guards send against close
}

func newClient(id string, userID uint, username string, isStaff bool, conversationID uint, queueSize int) *Client {
	c := &Client{
		ID:             id,
		UserID:         userID,
		Username:       username,
		IsStaff:        isStaff,
		ConversationID: conversationID,
		send:           make(chan []byte, queueSize),
	}
	c.state.Store(int32(StateConnecting))
	return c
}

func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *Client) setState(s ConnState) {
	c.state.Store(int32(s))
}

// Outbound exposes the send queue to the connection's writer pump. The
// channel is closed when the client closes.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

// Push enqueues a frame that must not be silently lost. It reports false when
// the queue is full or the client is closed; the hub then closes the client
// and the recipient catches up via history on reconnect.
func (c *Client) Push(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == StateClosed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// TrySend enqueues a best-effort frame (typing), dropped on backpressure.
func (c *Client) TrySend(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == StateClosed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Close transitions to Closed and closes the outbound queue. Safe to call
// more than once; all further operations on the client are no-ops.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.setState(StateClosed)
		close(c.send)
		c.mu.Unlock()
	})
}
