package models

import (
	"time"
)

// StaffPresence tracks a staff member's online flag and last activity. Created
// lazily on first connect or heartbeat; a nil LastSeen means never seen.
type StaffPresence struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	StaffID   uint       `gorm:"uniqueIndex;not null" json:"staff_id"`
	IsOnline  bool       `gorm:"default:false;index" json:"is_online"`
	LastSeen  *time.Time `json:"last_seen"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Staff User `gorm:"foreignKey:StaffID;constraint:OnDelete:CASCADE" json:"-"`
}

func (StaffPresence) TableName() string {
	return "staff_presence"
}
