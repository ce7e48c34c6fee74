package database

import (
	"log/slog"

	"ecodesk/config"
	"ecodesk/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.Message{},
		&models.StaffPresence{},
	)
}

// SeedStaff creates a default staff account when none exists so a fresh
// install has someone to route support requests to.
func SeedStaff(db *gorm.DB) {
	var count int64
	db.Model(&models.User{}).Where("is_staff = ?", true).Count(&count)
	if count > 0 {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("support"), bcrypt.DefaultCost)
	if err != nil {
		slog.Warn("seed staff: hash password", "err", err)
		return
	}
	staff := models.User{
		Username:     "support",
		FullName:     "Support Staff",
		Email:        "support@ecodesk.local",
		PasswordHash: string(hash),
		IsStaff:      true,
		IsActive:     true,
	}
	if err := db.Create(&staff).Error; err != nil {
		slog.Warn("seed staff: create", "err", err)
		return
	}
	slog.Info("seeded staff account", "email", staff.Email)
}
