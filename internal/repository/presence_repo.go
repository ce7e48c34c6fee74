package repository

import (
	"errors"

	"ecodesk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PresenceRepository struct {
	db *gorm.DB
}

func NewPresenceRepository(db *gorm.DB) *PresenceRepository {
	return &PresenceRepository{db: db}
}

// Upsert inserts or refreshes the row keyed by staff_id.
func (r *PresenceRepository) Upsert(p *models.StaffPresence) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "staff_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_online", "last_seen", "updated_at"}),
	}).Create(p).Error
}

func (r *PresenceRepository) GetByStaffID(staffID uint) (*models.StaffPresence, error) {
	var p models.StaffPresence
	err := r.db.Where("staff_id = ?", staffID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
