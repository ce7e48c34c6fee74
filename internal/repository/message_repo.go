package repository

import (
	"errors"

	"ecodesk/internal/models"

	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(m *models.Message) error {
	return r.db.Create(m).Error
}

// ListByConversation returns up to limit messages in (created_at, id)
// ascending order, keeping the most recent ones when the conversation is
// longer than limit. beforeID > 0 pages further back.
func (r *MessageRepository) ListByConversation(conversationID uint, limit int, beforeID uint) ([]models.Message, error) {
	q := r.db.Preload("Sender").Where("conversation_id = ?", conversationID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	var page []models.Message
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&page).Error
	if err != nil {
		return nil, err
	}
	// reverse into ascending order
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}

// Last returns the newest message of the conversation, or nil when empty.
func (r *MessageRepository) Last(conversationID uint) (*models.Message, error) {
	var m models.Message
	err := r.db.Where("conversation_id = ?", conversationID).
		Order("created_at DESC").Order("id DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkRead flags counterpart messages as read. With ids empty, every unread
// message not sent by readerID is marked. Idempotent.
func (r *MessageRepository) MarkRead(conversationID, readerID uint, ids []uint) error {
	q := r.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, readerID, false)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	return q.Update("is_read", true).Error
}

func (r *MessageRepository) UnreadCount(conversationID, forUserID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, forUserID, false).
		Count(&n).Error
	return n, err
}

// UnreadTotal counts unread counterpart messages across every conversation
// the user participates in, for the notification badge.
func (r *MessageRepository) UnreadTotal(userID uint, staff bool) (int64, error) {
	column := "conversations.user_id"
	if staff {
		column = "conversations.staff_id"
	}
	var n int64
	err := r.db.Model(&models.Message{}).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where(column+" = ?", userID).
		Where("conversations.is_active = ?", true).
		Where("messages.sender_id <> ? AND messages.is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

func (r *MessageRepository) CountByConversation(conversationID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.Message{}).Where("conversation_id = ?", conversationID).Count(&n).Error
	return n, err
}
