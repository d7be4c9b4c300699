package db

import (
	"fmt"

	"github.com/zulandar/polyglot/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model the relay persists.
func AllModels() []interface{} {
	return []interface{}{
		&models.ChannelLanguage{},
		&models.ChannelLink{},
		&models.MessageLink{},
		&models.MessageCopy{},
	}
}

// AutoMigrate creates or updates all relay tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
