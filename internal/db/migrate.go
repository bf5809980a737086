package db

import (
	"fmt"

	"github.com/zulandar/fieldsync/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Client{},
		&models.Lead{},
		&models.Measurement{},
		&models.Area{},
		&models.Bid{},
		&models.BidLineItem{},
		&models.BidSignature{},
		&models.Job{},
		&models.ChangeRecord{},
		&models.ConflictLog{},
		&models.SyncCheckpoint{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
