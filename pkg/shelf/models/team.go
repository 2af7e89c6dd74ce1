package models

import (
	"time"

	"gorm.io/gorm"
)

// TeamMember is a person that can take custody of assets.
// Team members do not need an account; UserID is set once they are invited and accept.
type TeamMember struct {
	ID             string         `gorm:"primarykey;type:varchar(36)" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	OrganizationID string         `gorm:"not null;index;type:varchar(36)" json:"organization_id"`
	Name           string         `gorm:"not null" json:"name"`
	UserID         *string        `gorm:"type:varchar(36)" json:"user_id"`

	// Relationships
	Custodies []Custody `gorm:"foreignKey:TeamMemberID" json:"custodies,omitempty"`
}

func (m *TeamMember) BeforeCreate(tx *gorm.DB) error {
	newID(&m.ID)
	return nil
}

// Custody records that a team member currently holds an asset
type Custody struct {
	ID           string    `gorm:"primarykey;type:varchar(36)" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	TeamMemberID string    `gorm:"not null;index;type:varchar(36)" json:"team_member_id"`
	AssetID      string    `gorm:"not null;uniqueIndex;type:varchar(36)" json:"asset_id"`
}

func (c *Custody) BeforeCreate(tx *gorm.DB) error {
	newID(&c.ID)
	return nil
}
