package ws

import (
	"log/slog"
	"sync"

	"ecodesk/internal/domain"
	"ecodesk/internal/models"
)

// ChatStore is the slice of the chat service the hub needs.
type ChatStore interface {
	GetAuthorized(conversationID, callerID uint) (*models.Conversation, error)
	Append(conversationID, senderID uint, text string, att *domain.Attachment) (*models.Message, error)
	History(conversationID, callerID uint, limit int, beforeID uint) ([]models.Message, error)
	MarkRead(conversationID, readerID uint, ids []uint) error
}

// Presence receives staff connect/disconnect/heartbeat notifications.
type Presence interface {
	SetOnline(staffID uint, online bool)
	Heartbeat(staffID uint)
}

// Hub owns the live connections, grouped by conversation. It is constructed
// once at startup and handed to every connection handler. The membership lock
// is never held across persistence I/O; delivery ordering comes from a
// per-conversation sequence lock held across the store append and the queue
// pushes, which are non-blocking.
type Hub struct {
	mu     sync.RWMutex
	groups map[uint]map[*Client]struct{}
	byID   map[string]*Client

	seqMu sync.Mutex
	seq   map[uint]*sync.Mutex

	store    ChatStore
	presence Presence

	historyLimit int
	queueSize    int
	log          *slog.Logger
}

func NewHub(store ChatStore, presence Presence, historyLimit, queueSize int, log *slog.Logger) *Hub {
	return &Hub{
		groups:       make(map[uint]map[*Client]struct{}),
		byID:         make(map[string]*Client),
		seq:          make(map[uint]*sync.Mutex),
		store:        store,
		presence:     presence,
		historyLimit: historyLimit,
		queueSize:    queueSize,
		log:          log,
	}
}

// Connect authorizes the caller against the conversation, registers the
// connection in its group, marks staff online and pushes recent history to
// the new connection only. On error the caller must close the transport.
func (h *Hub) Connect(connID string, userID uint, username string, isStaff bool, conversationID uint) (*Client, error) {
	if _, err := h.store.GetAuthorized(conversationID, userID); err != nil {
		return nil, err
	}
	c := newClient(connID, userID, username, isStaff, conversationID, h.queueSize)
	c.setState(StateAuthorized)

	h.mu.Lock()
	group, ok := h.groups[conversationID]
	if !ok {
		group = make(map[*Client]struct{})
		h.groups[conversationID] = group
	}
	group[c] = struct{}{}
	h.byID[connID] = c
	h.mu.Unlock()

	if isStaff {
		h.presence.SetOnline(userID, true)
	}

	history, err := h.store.History(conversationID, userID, h.historyLimit, 0)
	if err != nil {
		h.log.Warn("history fetch failed", "conversation_id", conversationID, "err", err)
		c.Push(EncodeError("history unavailable", true))
	} else {
		c.Push(encodeHistory(history))
	}
	c.setState(StateActive)
	h.log.Debug("connection joined", "conn_id", connID, "user_id", userID, "conversation_id", conversationID)
	return c, nil
}

// Disconnect deregisters the connection and marks departing staff offline.
// Safe to call for unknown ids and after a failed connect.
func (h *Hub) Disconnect(connID string) {
	h.mu.Lock()
	c, ok := h.byID[connID]
	if ok {
		delete(h.byID, connID)
		if group, ok := h.groups[c.ConversationID]; ok {
			delete(group, c)
			if len(group) == 0 {
				delete(h.groups, c.ConversationID)
			}
		}
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	c.Close()
	if c.IsStaff {
		h.presence.SetOnline(c.UserID, false)
	}
	h.log.Debug("connection left", "conn_id", connID, "user_id", c.UserID)
}

// SendMessage persists the frame through the store and fans the stored
// message out to the rest of the group. The sender receives an ack, not a
// duplicate broadcast. Append and enqueue happen under the conversation's
// sequence lock so recipients observe messages in append order even when
// senders race.
func (h *Hub) SendMessage(connID string, text string, att *domain.Attachment) error {
	c := h.lookup(connID)
	if c == nil || c.State() != StateActive {
		return nil
	}
	seq := h.convSeq(c.ConversationID)
	seq.Lock()
	defer seq.Unlock()
	msg, err := h.store.Append(c.ConversationID, c.UserID, text, att)
	if err != nil {
		return err
	}
	if !c.Push(encodeAck(msg)) {
		// the message is durable but its result cannot reach the sender;
		// close it so it resyncs via history
		h.log.Warn("sender backpressured, closing", "conn_id", c.ID, "user_id", c.UserID)
		h.Disconnect(c.ID)
	}
	h.broadcast(c, encodeMessage(msg), true)
	return nil
}

func (h *Hub) convSeq(id uint) *sync.Mutex {
	h.seqMu.Lock()
	defer h.seqMu.Unlock()
	l, ok := h.seq[id]
	if !ok {
		l = &sync.Mutex{}
		h.seq[id] = l
	}
	return l
}

// SendTyping broadcasts an ephemeral typing indicator; no persistence, no
// delivery guarantee.
func (h *Hub) SendTyping(connID string, isTyping bool) {
	c := h.lookup(connID)
	if c == nil || c.State() != StateActive {
		return
	}
	h.broadcast(c, encodeTyping(c.UserID, c.Username, isTyping), false)
}

// MarkRead delegates to the store; read receipts are not broadcast.
func (h *Hub) MarkRead(connID string, messageIDs []uint) error {
	c := h.lookup(connID)
	if c == nil || c.State() != StateActive {
		return nil
	}
	return h.store.MarkRead(c.ConversationID, c.UserID, messageIDs)
}

// Heartbeat refreshes presence for staff connections; called on pong.
func (h *Hub) Heartbeat(connID string) {
	c := h.lookup(connID)
	if c == nil || c.State() == StateClosed {
		return
	}
	if c.IsStaff {
		h.presence.Heartbeat(c.UserID)
	}
}

func (h *Hub) lookup(connID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.byID[connID]
}

// broadcast delivers to every group member except from. Chat messages close a
// backpressured recipient (it recovers via history); best-effort frames are
// simply dropped.
func (h *Hub) broadcast(from *Client, data []byte, critical bool) {
	h.mu.RLock()
	group := h.groups[from.ConversationID]
	recipients := make([]*Client, 0, len(group))
	for c := range group {
		if c != from {
			recipients = append(recipients, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range recipients {
		if critical {
			if !c.Push(data) {
				h.log.Warn("recipient backpressured, closing", "conn_id", c.ID, "user_id", c.UserID)
				h.Disconnect(c.ID)
			}
		} else {
			c.TrySend(data)
		}
	}
}

// GroupSize reports the number of live connections in a conversation's group.
func (h *Hub) GroupSize(conversationID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[conversationID])
}
