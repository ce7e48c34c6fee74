package models

import (
	"time"
)

// Conversation is one support thread between a regular user and a staff
// member. The composite unique index keeps a single row per pair; deactivation
// is the normal removal path, hard deletion an admin override.
type Conversation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_conversation_pair" json:"user_id"`
	StaffID   uint      `gorm:"not null;uniqueIndex:idx_conversation_pair" json:"staff_id"`
	IsActive  bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	User     User      `gorm:"foreignKey:UserID" json:"-"`
	Staff    User      `gorm:"foreignKey:StaffID" json:"-"`
	Messages []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// HasParticipant reports whether id is one of the two participants.
func (c *Conversation) HasParticipant(id uint) bool {
	return id == c.UserID || id == c.StaffID
}

// Counterpart returns the other participant's id.
func (c *Conversation) Counterpart(id uint) uint {
	if id == c.UserID {
		return c.StaffID
	}
	return c.UserID
}
