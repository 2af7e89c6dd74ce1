package models

import (
	"time"

	"gorm.io/gorm"
)

// Asset represents a tracked item in a workspace
type Asset struct {
	ID             string         `gorm:"primarykey;type:varchar(36)" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	OrganizationID string         `gorm:"not null;index;type:varchar(36)" json:"organization_id"`
	UserID         string         `gorm:"not null;type:varchar(36)" json:"user_id"`
	Title          string         `gorm:"not null" json:"title"`
	Description    string         `json:"description"`

	// Relationships
	QrCodes   []QrCode  `gorm:"foreignKey:AssetID" json:"qr_codes,omitempty"`
	Custodies []Custody `gorm:"foreignKey:AssetID" json:"custodies,omitempty"`
}

func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	newID(&a.ID)
	return nil
}

// QrCode is a printable code that points at an asset.
// A code without an asset is orphaned: it was printed ahead of time and is claimed later.
type QrCode struct {
	ID             string    `gorm:"primarykey;type:varchar(36)" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	OrganizationID string    `gorm:"not null;index;type:varchar(36)" json:"organization_id"`
	UserID         string    `gorm:"not null;type:varchar(36)" json:"user_id"`
	AssetID        *string   `gorm:"index;type:varchar(36)" json:"asset_id"`

	// Relationships
	Asset *Asset `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
}

func (q *QrCode) BeforeCreate(tx *gorm.DB) error {
	newID(&q.ID)
	return nil
}

// IsOrphaned reports whether the code is not linked to an asset.
func (q *QrCode) IsOrphaned() bool {
	return q.AssetID == nil
}
