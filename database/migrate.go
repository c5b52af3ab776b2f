package database

import (
	"github.com/yeremiapane/pos-sync/models"
	"github.com/yeremiapane/pos-sync/utils"
	"gorm.io/gorm"
)

// Migrate creates the remote store tables the gateway reads and writes.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.StaffMember{},
		&models.CategoryRecord{},
		&models.MenuItemRecord{},
		&models.OrderRecord{},
		&models.BrandSettingsRecord{},
	)
	if err != nil {
		return err
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}

// MigrateCache prepares the terminal-local cache database.
func MigrateCache(db *gorm.DB) error {
	return db.AutoMigrate(&models.CacheEntry{})
}
