package repository

import (
	"path/filepath"
	"testing"

	"ecodesk/internal/database"
	"ecodesk/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func seedPair(t *testing.T, db *gorm.DB) (user, staff models.User) {
	t.Helper()
	user = models.User{Username: "alice", FullName: "Alice", Email: "alice@example.com", IsActive: true}
	staff = models.User{Username: "bob", FullName: "Bob", Email: "bob@example.com", IsStaff: true, IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&staff).Error)
	return user, staff
}
