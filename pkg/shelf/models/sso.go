package models

import (
	"time"

	"gorm.io/gorm"
)

// SsoDetails holds the SSO settings of a single workspace.
// Users whose email domain matches Domain are routed to the identity provider; the group ids
// map identity provider groups onto workspace roles.
type SsoDetails struct {
	ID                 string    `gorm:"primarykey;type:varchar(36)" json:"id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	OrganizationID     string    `gorm:"not null;uniqueIndex;type:varchar(36)" json:"organization_id"`
	Domain             string    `gorm:"not null;index" json:"domain"`
	AdminGroupID       string    `json:"admin_group_id"`
	SelfServiceGroupID string    `json:"self_service_group_id"`
}

func (d *SsoDetails) BeforeCreate(tx *gorm.DB) error {
	newID(&d.ID)
	return nil
}
