// Package organizations reads and updates workspaces and their SSO settings.
package organizations

import (
	"context"
	"fmt"
	"time"

	"github.com/mikepea/shelf/pkg/shelf/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SsoSettings are the values written by an SSO details upsert. All three are always
// written together.
type SsoSettings struct {
	Domain             string
	AdminGroupID       string
	SelfServiceGroupID string
}

// Summary is a row of the organization index
type Summary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	OwnerEmail string    `json:"owner_email"`
	EnabledSso bool      `json:"enabled_sso"`
	QrCount    int64     `json:"qr_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Service reads and updates organizations
type Service struct {
	db *gorm.DB
}

// NewService creates a new organizations service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetWithDetails loads an organization with its QR codes (and their assets), owner and SSO
// details. A missing organization yields an error wrapping gorm.ErrRecordNotFound.
func (s *Service) GetWithDetails(ctx context.Context, id string) (*models.Organization, error) {
	var org models.Organization
	err := s.db.WithContext(ctx).
		Preload("QrCodes", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("QrCodes.Asset").
		Preload("Owner").
		Preload("SsoDetails").
		First(&org, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("load organization %s: %w", id, err)
	}
	return &org, nil
}

// Exists returns an error wrapping gorm.ErrRecordNotFound when the organization is missing.
func (s *Service) Exists(ctx context.Context, id string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Organization{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check organization %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("organization %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// ToggleSso sets the SSO flag. SSO details are left as they are.
func (s *Service) ToggleSso(ctx context.Context, id string, enabled bool) error {
	result := s.db.WithContext(ctx).
		Model(&models.Organization{}).
		Where("id = ?", id).
		Update("enabled_sso", enabled)
	if result.Error != nil {
		return fmt.Errorf("toggle sso for organization %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("toggle sso for organization %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// UpsertSsoDetails creates the organization's SSO details or overwrites all of their fields.
// The SSO flag is not changed.
func (s *Service) UpsertSsoDetails(ctx context.Context, organizationID string, settings SsoSettings) (*models.SsoDetails, error) {
	if err := s.Exists(ctx, organizationID); err != nil {
		return nil, fmt.Errorf("upsert sso details: %w", err)
	}
	db := s.db.WithContext(ctx)

	details := models.SsoDetails{
		OrganizationID:     organizationID,
		Domain:             settings.Domain,
		AdminGroupID:       settings.AdminGroupID,
		SelfServiceGroupID: settings.SelfServiceGroupID,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"domain", "admin_group_id", "self_service_group_id", "updated_at"}),
	}).Create(&details).Error
	if err != nil {
		return nil, fmt.Errorf("upsert sso details for organization %s: %w", organizationID, err)
	}

	// On conflict the generated id was not stored; reload the row that was.
	var stored models.SsoDetails
	if err := db.First(&stored, "organization_id = ?", organizationID).Error; err != nil {
		return nil, fmt.Errorf("reload sso details for organization %s: %w", organizationID, err)
	}
	return &stored, nil
}

// FindBySsoDomain returns the oldest organization with SSO enabled whose SSO domain matches.
func (s *Service) FindBySsoDomain(ctx context.Context, domain string) (*models.Organization, error) {
	var org models.Organization
	err := s.db.WithContext(ctx).
		Joins("SsoDetails").
		Where("organizations.enabled_sso = ? AND SsoDetails.domain = ?", true, domain).
		Order("organizations.created_at ASC").
		First(&org).Error
	if err != nil {
		return nil, fmt.Errorf("find organization for sso domain %s: %w", domain, err)
	}
	return &org, nil
}

// List returns every organization with its owner's email and QR code count.
func (s *Service) List(ctx context.Context, search string) ([]Summary, error) {
	db := s.db.WithContext(ctx)

	query := db.Preload("Owner").Order("created_at DESC")
	if search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	var orgs []models.Organization
	if err := query.Find(&orgs).Error; err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}

	var counts []struct {
		OrganizationID string
		Count          int64
	}
	err := db.Model(&models.QrCode{}).
		Select("organization_id, COUNT(*) AS count").
		Group("organization_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count qr codes: %w", err)
	}
	byOrg := make(map[string]int64, len(counts))
	for _, c := range counts {
		byOrg[c.OrganizationID] = c.Count
	}

	summaries := make([]Summary, len(orgs))
	for i, o := range orgs {
		summaries[i] = Summary{
			ID:         o.ID,
			Name:       o.Name,
			Type:       string(o.Type),
			OwnerEmail: o.Owner.Email,
			EnabledSso: o.EnabledSso,
			QrCount:    byOrg[o.ID],
			CreatedAt:  o.CreatedAt,
		}
	}
	return summaries, nil
}
