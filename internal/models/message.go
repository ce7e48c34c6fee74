package models

import (
	"time"

	"ecodesk/internal/domain"
)

// Message is immutable after creation except for IsRead, which only the
// non-sending participant flips. Ordering within a conversation is
// (created_at, id) ascending.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	SenderID       uint      `gorm:"not null;index" json:"sender_id"`
	Text           string    `gorm:"type:text" json:"text"`
	FileURL        string    `gorm:"size:512" json:"file_url,omitempty"`
	FileName       string    `gorm:"size:255" json:"file_name,omitempty"`
	FileType       string    `gorm:"size:100" json:"file_type,omitempty"`
	FileCategory   string    `gorm:"size:20" json:"file_category,omitempty"`
	FileSize       int64     `json:"file_size,omitempty"`
	IsRead         bool      `gorm:"default:false;index" json:"is_read"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`

	Conversation Conversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	Sender       User         `gorm:"foreignKey:SenderID" json:"-"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) HasAttachment() bool {
	return m.FileURL != ""
}

// SetAttachment copies upload metadata onto the message.
func (m *Message) SetAttachment(a *domain.Attachment) {
	if a == nil {
		return
	}
	m.FileURL = a.URL
	m.FileName = a.Name
	m.FileType = a.Mime
	m.FileCategory = a.Category
	m.FileSize = a.Size
}

func (m *Message) Attachment() *domain.Attachment {
	if !m.HasAttachment() {
		return nil
	}
	return &domain.Attachment{
		URL:      m.FileURL,
		Name:     m.FileName,
		Mime:     m.FileType,
		Category: m.FileCategory,
		Size:     m.FileSize,
	}
}
