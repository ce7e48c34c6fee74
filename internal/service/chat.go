package service

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"ecodesk/internal/domain"
	"ecodesk/internal/models"
	"ecodesk/internal/repository"
)

// ConversationSummary is one inbox row: the conversation, the other
// participant's display name, the caller's unread count and a last-message
// preview.
type ConversationSummary struct {
	Conversation    models.Conversation `json:"conversation"`
	CounterpartName string              `json:"counterpart_name"`
	UnreadCount     int64               `json:"unread_count"`
	LastMessage     *models.Message     `json:"last_message,omitempty"`
}

// ChatService owns the message append path. Appends are serialized per
// conversation so assigned timestamps never run backwards and list order
// matches append order; the lock is held across the persistence write, never
// across broadcast.
type ChatService struct {
	convRepo *repository.ConversationRepository
	msgRepo  *repository.MessageRepository
	userRepo *repository.UserRepository

	maxAttachmentBytes int64
	log                *slog.Logger
	now                func() time.Time

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewChatService(
	convRepo *repository.ConversationRepository,
	msgRepo *repository.MessageRepository,
	userRepo *repository.UserRepository,
	maxAttachmentBytes int64,
	log *slog.Logger,
) *ChatService {
	return &ChatService{
		convRepo:           convRepo,
		msgRepo:            msgRepo,
		userRepo:           userRepo,
		maxAttachmentBytes: maxAttachmentBytes,
		log:                log,
		now:                time.Now,
		locks:              make(map[uint]*sync.Mutex),
	}
}

func (s *ChatService) convLock(id uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// releaseLock drops a hard-deleted conversation's append lock so the map
// stays bounded by live conversations; an append racing the delete fails
// authorization once the row is gone.
func (s *ChatService) releaseLock(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, id)
}

// GetAuthorized fetches the conversation and checks the caller is one of its
// participants. Fetch is plain data access; authorization is a predicate over
// the fetched row.
func (s *ChatService) GetAuthorized(conversationID, callerID uint) (*models.Conversation, error) {
	conv, err := s.convRepo.GetByID(conversationID)
	if err != nil {
		return nil, domain.Storage("get conversation", err)
	}
	if conv == nil {
		return nil, domain.NotFound("conversation")
	}
	if !conv.HasParticipant(callerID) {
		return nil, domain.Forbidden("not a participant of this conversation")
	}
	return conv, nil
}

// Start returns the caller's active conversation with the staff member,
// creating it when absent. staffID 0 picks the first available staff account.
func (s *ChatService) Start(userID, staffID uint) (*models.Conversation, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, domain.Storage("get user", err)
	}
	if user == nil {
		return nil, domain.NotFound("user")
	}
	if user.IsStaff {
		return nil, domain.Forbidden("staff cannot open a support conversation")
	}
	var staff *models.User
	if staffID == 0 {
		staff, err = s.userRepo.FirstAvailableStaff()
	} else {
		staff, err = s.userRepo.GetByID(staffID)
	}
	if err != nil {
		return nil, domain.Storage("get staff", err)
	}
	if staff == nil || !staff.IsStaff || !staff.IsActive {
		return nil, domain.NotFound("staff")
	}
	conv, err := s.convRepo.GetOrCreate(userID, staff.ID)
	if err != nil {
		return nil, domain.Storage("create conversation", err)
	}
	return conv, nil
}

// Append validates, authorizes and persists one message, bumping the
// conversation's updated_at. The returned message carries the server-assigned
// id and timestamp.
func (s *ChatService) Append(conversationID, senderID uint, text string, att *domain.Attachment) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && att == nil {
		return nil, domain.Validation("message must have text or an attachment")
	}
	if err := s.validateAttachment(att); err != nil {
		return nil, err
	}
	conv, err := s.GetAuthorized(conversationID, senderID)
	if err != nil {
		return nil, err
	}

	lock := s.convLock(conv.ID)
	lock.Lock()
	defer lock.Unlock()

	ts := s.now()
	last, err := s.msgRepo.Last(conv.ID)
	if err != nil {
		return nil, domain.Storage("read last message", err)
	}
	if last != nil && ts.Before(last.CreatedAt) {
		// clock went backwards; keep per-conversation timestamps non-decreasing
		ts = last.CreatedAt
	}
	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Text:           text,
		CreatedAt:      ts,
	}
	msg.SetAttachment(att)
	if err := s.msgRepo.Create(msg); err != nil {
		return nil, domain.Storage("append message", err)
	}
	if err := s.convRepo.Touch(conv.ID, ts); err != nil {
		// message is durable; ordering metadata catches up on the next append
		s.log.Warn("bump conversation updated_at failed", "conversation_id", conv.ID, "err", err)
	}
	if sender, err := s.userRepo.GetByID(senderID); err == nil && sender != nil {
		msg.Sender = *sender
	}
	return msg, nil
}

func (s *ChatService) validateAttachment(att *domain.Attachment) error {
	if att == nil {
		return nil
	}
	if att.URL == "" {
		return domain.Validation("attachment is missing a URL")
	}
	if s.maxAttachmentBytes > 0 && att.Size > s.maxAttachmentBytes {
		return domain.Validation("attachment exceeds %d bytes", s.maxAttachmentBytes)
	}
	if _, ok := domain.AllowedAttachmentMIME[att.Mime]; !ok {
		return domain.Validation("attachment type %q is not allowed", att.Mime)
	}
	return nil
}

// History returns up to limit messages ascending, newest page when beforeID
// is zero.
func (s *ChatService) History(conversationID, callerID uint, limit int, beforeID uint) ([]models.Message, error) {
	if _, err := s.GetAuthorized(conversationID, callerID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	msgs, err := s.msgRepo.ListByConversation(conversationID, limit, beforeID)
	if err != nil {
		return nil, domain.Storage("list messages", err)
	}
	return msgs, nil
}

// MarkRead flags counterpart messages as read; with no ids, all of them.
func (s *ChatService) MarkRead(conversationID, readerID uint, ids []uint) error {
	if _, err := s.GetAuthorized(conversationID, readerID); err != nil {
		return err
	}
	if err := s.msgRepo.MarkRead(conversationID, readerID, ids); err != nil {
		return domain.Storage("mark read", err)
	}
	return nil
}

func (s *ChatService) UnreadCount(conversationID, forUserID uint) (int64, error) {
	if _, err := s.GetAuthorized(conversationID, forUserID); err != nil {
		return 0, err
	}
	n, err := s.msgRepo.UnreadCount(conversationID, forUserID)
	if err != nil {
		return 0, domain.Storage("unread count", err)
	}
	return n, nil
}

// UnreadTotal is the badge count across all of the user's conversations.
func (s *ChatService) UnreadTotal(userID uint, staff bool) (int64, error) {
	n, err := s.msgRepo.UnreadTotal(userID, staff)
	if err != nil {
		return 0, domain.Storage("unread total", err)
	}
	return n, nil
}

// ListForStaff returns the staff inbox: active conversations newest-activity
// first, each with the counterpart's name, unread count and last message.
func (s *ChatService) ListForStaff(staffID uint) ([]ConversationSummary, error) {
	convs, err := s.convRepo.ListForStaff(staffID)
	if err != nil {
		return nil, domain.Storage("list conversations", err)
	}
	summaries := make([]ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		unread, err := s.msgRepo.UnreadCount(conv.ID, staffID)
		if err != nil {
			return nil, domain.Storage("unread count", err)
		}
		last, err := s.msgRepo.Last(conv.ID)
		if err != nil {
			return nil, domain.Storage("last message", err)
		}
		summaries = append(summaries, ConversationSummary{
			Conversation:    conv,
			CounterpartName: conv.User.DisplayName(),
			UnreadCount:     unread,
			LastMessage:     last,
		})
	}
	return summaries, nil
}

// GetForUser returns the user's single active conversation, or nil.
func (s *ChatService) GetForUser(userID uint) (*models.Conversation, error) {
	conv, err := s.convRepo.GetForUser(userID)
	if err != nil {
		return nil, domain.Storage("get conversation", err)
	}
	return conv, nil
}

// ListForUser mirrors ListForStaff for the user side: zero or one summary.
func (s *ChatService) ListForUser(userID uint) ([]ConversationSummary, error) {
	conv, err := s.GetForUser(userID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return []ConversationSummary{}, nil
	}
	unread, err := s.msgRepo.UnreadCount(conv.ID, userID)
	if err != nil {
		return nil, domain.Storage("unread count", err)
	}
	last, err := s.msgRepo.Last(conv.ID)
	if err != nil {
		return nil, domain.Storage("last message", err)
	}
	return []ConversationSummary{{
		Conversation:    *conv,
		CounterpartName: conv.Staff.DisplayName(),
		UnreadCount:     unread,
		LastMessage:     last,
	}}, nil
}

// Deactivate soft-removes the conversation. Only the staff participant may.
func (s *ChatService) Deactivate(conversationID, requestedBy uint) error {
	conv, err := s.GetAuthorized(conversationID, requestedBy)
	if err != nil {
		return err
	}
	if requestedBy != conv.StaffID {
		return domain.Forbidden("only the staff participant may remove a conversation")
	}
	if err := s.convRepo.Deactivate(conv.ID); err != nil {
		return domain.Storage("deactivate conversation", err)
	}
	return nil
}

// HardDelete removes the conversation and its messages. Staff-only override.
func (s *ChatService) HardDelete(conversationID, requestedBy uint) error {
	conv, err := s.GetAuthorized(conversationID, requestedBy)
	if err != nil {
		return err
	}
	if requestedBy != conv.StaffID {
		return domain.Forbidden("only the staff participant may remove a conversation")
	}
	if err := s.convRepo.HardDelete(conv.ID); err != nil {
		return domain.Storage("delete conversation", err)
	}
	s.releaseLock(conv.ID)
	return nil
}
