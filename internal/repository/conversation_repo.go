package repository

import (
	"errors"
	"time"

	"ecodesk/internal/models"

	"gorm.io/gorm"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) GetByID(id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.Preload("User").Preload("Staff").First(&conv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetOrCreate returns the conversation for the pair, creating it when absent.
// The unique (user_id, staff_id) index is the atomicity boundary: a create
// lost to a concurrent insert re-fetches the winner's row. A deactivated row
// is reactivated rather than duplicated.
func (r *ConversationRepository) GetOrCreate(userID, staffID uint) (*models.Conversation, error) {
	conv, err := r.getByPair(userID, staffID)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		return r.reactivate(conv)
	}
	conv = &models.Conversation{UserID: userID, StaffID: staffID, IsActive: true}
	if err := r.db.Create(conv).Error; err != nil {
		// Lost the race on the unique pair index: someone else's row wins.
		existing, fetchErr := r.getByPair(userID, staffID)
		if fetchErr == nil && existing != nil {
			return r.reactivate(existing)
		}
		return nil, err
	}
	return conv, nil
}

func (r *ConversationRepository) getByPair(userID, staffID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.Where("user_id = ? AND staff_id = ?", userID, staffID).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepository) reactivate(conv *models.Conversation) (*models.Conversation, error) {
	if conv.IsActive {
		return conv, nil
	}
	if err := r.db.Model(conv).Update("is_active", true).Error; err != nil {
		return nil, err
	}
	conv.IsActive = true
	return conv, nil
}

// ListForStaff returns the staff member's active conversations, most recently
// updated first.
func (r *ConversationRepository) ListForStaff(staffID uint) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.Preload("User").
		Where("staff_id = ? AND is_active = ?", staffID, true).
		Order("updated_at DESC").
		Find(&convs).Error
	return convs, err
}

// GetForUser returns the user's single active conversation, or nil.
func (r *ConversationRepository) GetForUser(userID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.Preload("Staff").
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepository) Deactivate(id uint) error {
	return r.db.Model(&models.Conversation{}).Where("id = ?", id).Update("is_active", false).Error
}

// HardDelete removes the conversation and its messages.
func (r *ConversationRepository) HardDelete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Conversation{}, id).Error
	})
}

// Touch bumps updated_at; called on every append so inbox ordering follows
// last-message time.
func (r *ConversationRepository) Touch(id uint, at time.Time) error {
	return r.db.Model(&models.Conversation{}).Where("id = ?", id).Update("updated_at", at).Error
}
