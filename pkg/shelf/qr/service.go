// Package qr manages QR codes: batch generation of orphaned codes, listing and scan redirects.
package qr

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mikepea/shelf/pkg/shelf/metrics"
	"github.com/mikepea/shelf/pkg/shelf/models"
	"gorm.io/gorm"
)

// insertBatchSize caps the rows per INSERT so large batches stay under SQLite's variable limit.
const insertBatchSize = 100

// Service reads and writes QR codes
type Service struct {
	db *gorm.DB
}

// NewService creates a new QR code service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GenerateOrphanedCodes creates amount QR codes without an asset for the organization and
// owner. Either every code is created or none is.
func (s *Service) GenerateOrphanedCodes(ctx context.Context, organizationID, userID string, amount int) ([]models.QrCode, error) {
	if amount <= 0 {
		return nil, nil
	}

	codes := make([]models.QrCode, amount)
	for i := range codes {
		codes[i] = models.QrCode{
			ID:             uuid.NewString(),
			OrganizationID: organizationID,
			UserID:         userID,
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&codes, insertBatchSize).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create %d orphaned qr codes for organization %s: %w", amount, organizationID, err)
	}

	metrics.OrphanedQrCodes.Add(float64(amount))
	return codes, nil
}

// List returns the organization's QR codes, newest first. When orphaned is non-nil only
// orphaned (true) or linked (false) codes are returned.
func (s *Service) List(ctx context.Context, organizationID string, orphaned *bool) ([]models.QrCode, error) {
	query := s.db.WithContext(ctx).
		Preload("Asset").
		Where("organization_id = ?", organizationID).
		Order("created_at DESC")

	if orphaned != nil {
		if *orphaned {
			query = query.Where("asset_id IS NULL")
		} else {
			query = query.Where("asset_id IS NOT NULL")
		}
	}

	var codes []models.QrCode
	if err := query.Find(&codes).Error; err != nil {
		return nil, fmt.Errorf("list qr codes for organization %s: %w", organizationID, err)
	}
	return codes, nil
}

// Get returns a single QR code.
func (s *Service) Get(ctx context.Context, id string) (*models.QrCode, error) {
	var code models.QrCode
	if err := s.db.WithContext(ctx).First(&code, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("load qr code %s: %w", id, err)
	}
	return &code, nil
}
