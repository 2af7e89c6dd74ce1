package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AllModels returns all models for migration
// Note: User and Organization must be migrated first as other models depend on them
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Organization{},
		&UserOrganization{},
		&SsoDetails{},
		&Asset{},
		&QrCode{},
		&TeamMember{},
		&Custody{},
		&Booking{},
	}
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

// newID returns a fresh identifier for a row that has none yet.
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
