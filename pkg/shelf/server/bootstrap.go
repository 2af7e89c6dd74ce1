package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mikepea/shelf/pkg/shelf/auth"
	"github.com/mikepea/shelf/pkg/shelf/models"
	"gorm.io/gorm"
)

// ErrUserExists is returned by CreateAdmin when the email is taken
var ErrUserExists = errors.New("user already exists")

// EnsureAdmin creates an administrator with the given credentials when the database has none.
// It reports whether a user was created.
func EnsureAdmin(ctx context.Context, db *gorm.DB, email, password string) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	if _, err := CreateAdmin(ctx, db, email, password, "Admin", ""); err != nil {
		return false, err
	}
	return true, nil
}

// CreateAdmin creates an administrator together with their personal workspace.
func CreateAdmin(ctx context.Context, db *gorm.DB, email, password, firstName, lastName string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         models.RoleAdmin,
	}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrUserExists
		}
		return auth.CreateUserWithWorkspace(tx, &user)
	})
	if err != nil {
		return nil, fmt.Errorf("create admin %s: %w", email, err)
	}
	return &user, nil
}
