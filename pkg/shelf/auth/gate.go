package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikepea/shelf/pkg/shelf/models"
	"github.com/mikepea/shelf/pkg/shelf/shelferr"
	"gorm.io/gorm"
)

// Gate answers permission questions against the database rather than token claims, so a
// demoted administrator loses access immediately.
type Gate struct {
	db *gorm.DB
}

// NewGate creates a new permission gate
func NewGate(db *gorm.DB) *Gate {
	return &Gate{db: db}
}

// RequireAdmin succeeds when userID belongs to a system administrator.
func (g *Gate) RequireAdmin(ctx context.Context, userID string) error {
	if userID == "" {
		return shelferr.Unauthorized(shelferr.LabelAuth)
	}

	var user models.User
	err := g.db.WithContext(ctx).Select("id", "role").First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shelferr.Forbidden(shelferr.LabelAuth, "You are not allowed to perform this action", shelferr.AdditionalData{"userId": userID})
	}
	if err != nil {
		return shelferr.Dependency(shelferr.LabelAuth, "Failed to verify user permissions", fmt.Errorf("load user %s: %w", userID, err), nil)
	}

	if !user.IsAdmin() {
		return shelferr.Forbidden(shelferr.LabelAuth, "You are not allowed to perform this action", shelferr.AdditionalData{"userId": userID})
	}
	return nil
}

// RequireWorkspaceRole succeeds when the workspace exists and userID is a system
// administrator, owns the workspace, or is a member of it with one of roles.
func (g *Gate) RequireWorkspaceRole(ctx context.Context, userID, organizationID string, roles ...models.OrganizationRole) error {
	if userID == "" {
		return shelferr.Unauthorized(shelferr.LabelAuth)
	}

	var org models.Organization
	err := g.db.WithContext(ctx).Select("id", "owner_id").First(&org, "id = ?", organizationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shelferr.NotFound(shelferr.LabelAuth, "Workspace not found", "The workspace you are trying to access does not exist or you do not have permission to access it.", err, shelferr.AdditionalData{"organizationId": organizationID})
	}
	if err != nil {
		return shelferr.Dependency(shelferr.LabelAuth, "Failed to verify user permissions", fmt.Errorf("load organization %s: %w", organizationID, err), nil)
	}
	if org.OwnerID == userID {
		return nil
	}

	if err := g.RequireAdmin(ctx, userID); err == nil {
		return nil
	} else if !shelferr.IsKind(err, shelferr.KindForbidden) {
		return err
	}

	var membership models.UserOrganization
	err = g.db.WithContext(ctx).
		Where("user_id = ? AND organization_id = ?", userID, organizationID).
		First(&membership).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return shelferr.Dependency(shelferr.LabelAuth, "Failed to verify user permissions", fmt.Errorf("load membership: %w", err), nil)
	}
	if err == nil {
		for _, r := range roles {
			if membership.Role == r {
				return nil
			}
		}
	}

	return shelferr.Forbidden(shelferr.LabelAuth, "You are not allowed to perform this action", shelferr.AdditionalData{"userId": userID, "organizationId": organizationID})
}
