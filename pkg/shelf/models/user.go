package models

import (
	"time"

	"gorm.io/gorm"
)

// Role represents a user's system-wide role
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// User represents a user in the system
type User struct {
	ID           string         `gorm:"primarykey;type:varchar(36)" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `json:"-"` // Empty for SSO-only users
	FirstName    string         `json:"first_name"`
	LastName     string         `json:"last_name"`
	Role         Role           `gorm:"type:varchar(20);default:'USER'" json:"role"`
	SSO          bool           `gorm:"default:false" json:"sso"` // Provisioned through an SSO login

	// Relationships
	Organizations []UserOrganization `gorm:"foreignKey:UserID" json:"organizations,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	newID(&u.ID)
	return nil
}

// FullName joins first and last name.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// IsAdmin reports whether the user holds the system administrator role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
