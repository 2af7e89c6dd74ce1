package models

import (
	"time"

	"gorm.io/gorm"
)

// OrganizationType distinguishes personal workspaces from team workspaces
type OrganizationType string

const (
	OrganizationTypePersonal OrganizationType = "PERSONAL"
	OrganizationTypeTeam     OrganizationType = "TEAM"
)

// OrganizationRole represents a user's role within a workspace
type OrganizationRole string

const (
	OrganizationRoleOwner       OrganizationRole = "OWNER"
	OrganizationRoleAdmin       OrganizationRole = "ADMIN"
	OrganizationRoleSelfService OrganizationRole = "SELF_SERVICE"
	OrganizationRoleBase        OrganizationRole = "BASE"
)

// Organization represents a workspace.
// Workspaces own assets, QR codes, team members and bookings. SSO can be enabled per workspace;
// the SSO settings live in SsoDetails and survive when SSO is switched off.
type Organization struct {
	ID         string           `gorm:"primarykey;type:varchar(36)" json:"id"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	DeletedAt  gorm.DeletedAt   `gorm:"index" json:"-"`
	Name       string           `gorm:"not null" json:"name"`
	Type       OrganizationType `gorm:"type:varchar(20);default:'PERSONAL'" json:"type"`
	EnabledSso bool             `gorm:"default:false" json:"enabled_sso"`
	OwnerID    string           `gorm:"not null;index;type:varchar(36)" json:"owner_id"`

	// Relationships
	Owner      User               `gorm:"foreignKey:OwnerID" json:"owner"`
	SsoDetails *SsoDetails        `gorm:"foreignKey:OrganizationID" json:"sso_details"`
	QrCodes    []QrCode           `gorm:"foreignKey:OrganizationID" json:"qr_codes,omitempty"`
	Members    []UserOrganization `gorm:"foreignKey:OrganizationID" json:"members,omitempty"`
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	newID(&o.ID)
	return nil
}

// UserOrganization links users to the workspaces they belong to.
// A user can belong to many workspaces with a different role in each.
type UserOrganization struct {
	ID             string           `gorm:"primarykey;type:varchar(36)" json:"id"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	DeletedAt      gorm.DeletedAt   `gorm:"index" json:"-"`
	OrganizationID string           `gorm:"not null;uniqueIndex:idx_org_user;type:varchar(36)" json:"organization_id"`
	UserID         string           `gorm:"not null;uniqueIndex:idx_org_user;type:varchar(36)" json:"user_id"`
	Role           OrganizationRole `gorm:"type:varchar(20);default:'BASE'" json:"role"`

	// Relationships
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	User         User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (m *UserOrganization) BeforeCreate(tx *gorm.DB) error {
	newID(&m.ID)
	return nil
}
