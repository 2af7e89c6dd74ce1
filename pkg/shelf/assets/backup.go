// Package assets exports and imports asset backups for a workspace.
package assets

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mikepea/shelf/pkg/shelf/models"
	"gorm.io/gorm"
)

// Columns is the header of an asset backup
var Columns = []string{"id", "title", "description", "createdAt", "qrId"}

// Row is one asset in a backup. An asset with several QR codes spans several rows that
// share the asset id.
type Row struct {
	ID          string
	Title       string
	Description string
	CreatedAt   time.Time
	QrID        string
	// Line is the row's line in the file it was read from, zero when not read from a file.
	Line int
}

func (r Row) record() []string {
	return []string{r.ID, r.Title, r.Description, r.CreatedAt.UTC().Format(time.RFC3339), r.QrID}
}

// RowError reports why a backup row was rejected. Line is 1-based and counts the header.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportError is returned when a backup is rejected. Nothing is imported.
type ImportError struct {
	Rows []RowError
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%d invalid rows in asset backup", len(e.Rows))
}

// Service reads and writes asset backups
type Service struct {
	db *gorm.DB
}

// NewService creates a new asset backup service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Rows returns the organization's assets as backup rows, oldest first.
func (s *Service) Rows(ctx context.Context, organizationID string) ([]Row, error) {
	var assets []models.Asset
	err := s.db.WithContext(ctx).
		Preload("QrCodes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("organization_id = ?", organizationID).
		Order("created_at ASC").
		Find(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("load assets for organization %s: %w", organizationID, err)
	}

	rows := make([]Row, 0, len(assets))
	for _, a := range assets {
		row := Row{ID: a.ID, Title: a.Title, Description: a.Description, CreatedAt: a.CreatedAt}
		if len(a.QrCodes) == 0 {
			rows = append(rows, row)
			continue
		}
		for _, q := range a.QrCodes {
			row.QrID = q.ID
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// WriteCSV writes rows with the backup header.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a backup. Header names may appear in any order; unknown columns are rejected.
func ReadCSV(r io.Reader) ([]Row, error) {
	br := stripUTF8BOM(bufio.NewReader(r))
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ImportError{Rows: []RowError{{Line: 1, Message: "missing header"}}}
	}
	if err != nil {
		return nil, &ImportError{Rows: []RowError{{Line: 1, Message: err.Error()}}}
	}
	index, err := headerIndex(header)
	if err != nil {
		return nil, &ImportError{Rows: []RowError{{Line: 1, Message: err.Error()}}}
	}

	var rows []Row
	var rowErrs []RowError
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, &ImportError{Rows: []RowError{{Message: err.Error()}}}
			}
			rowErrs = append(rowErrs, RowError{Line: parseErr.StartLine, Message: parseErr.Err.Error()})
			continue
		}
		line, _ := cr.FieldPos(0)
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		row := Row{
			ID:          field("id"),
			Title:       field("title"),
			Description: field("description"),
			QrID:        field("qrId"),
			Line:        line,
		}
		if row.Title == "" {
			rowErrs = append(rowErrs, RowError{Line: line, Message: "title is required"})
			continue
		}
		if raw := field("createdAt"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				rowErrs = append(rowErrs, RowError{Line: line, Message: "createdAt must be an RFC 3339 timestamp"})
				continue
			}
			row.CreatedAt = t
		}
		rows = append(rows, row)
	}

	if len(rowErrs) > 0 {
		return nil, &ImportError{Rows: rowErrs}
	}
	return rows, nil
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func headerIndex(header []string) (map[string]int, error) {
	allowed := make(map[string]bool, len(Columns))
	for _, c := range Columns {
		allowed[c] = true
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if !allowed[name] {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		index[name] = i
	}
	if _, ok := index["title"]; !ok {
		return nil, errors.New("missing column \"title\"")
	}
	return index, nil
}

// Import creates the assets described by rows in a single transaction, owned by userID.
// Rows sharing an id become one asset. A qrId is linked to the new asset: an existing
// orphaned code of the organization is claimed, an unknown id is created.
func (s *Service) Import(ctx context.Context, organizationID, userID string, rows []Row) (int, error) {
	created := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		byBackupID := make(map[string]string)
		var rowErrs []RowError

		for i, row := range rows {
			line := row.Line
			if line == 0 {
				line = i + 2
			}

			assetID, seen := byBackupID[row.ID]
			if !seen || row.ID == "" {
				asset := models.Asset{
					OrganizationID: organizationID,
					UserID:         userID,
					Title:          row.Title,
					Description:    row.Description,
				}
				if !row.CreatedAt.IsZero() {
					asset.CreatedAt = row.CreatedAt
				}
				if err := tx.Create(&asset).Error; err != nil {
					return fmt.Errorf("create asset on line %d: %w", line, err)
				}
				assetID = asset.ID
				if row.ID != "" {
					byBackupID[row.ID] = assetID
				}
				created++
			}

			if row.QrID == "" {
				continue
			}
			msg, err := linkQrCode(tx, organizationID, userID, assetID, row.QrID)
			if err != nil {
				return fmt.Errorf("link qr code on line %d: %w", line, err)
			}
			if msg != "" {
				rowErrs = append(rowErrs, RowError{Line: line, Message: msg})
			}
		}

		if len(rowErrs) > 0 {
			return &ImportError{Rows: rowErrs}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// linkQrCode attaches qrID to assetID. A non-empty message rejects the row.
func linkQrCode(tx *gorm.DB, organizationID, userID, assetID, qrID string) (string, error) {
	var code models.QrCode
	err := tx.First(&code, "id = ?", qrID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", tx.Create(&models.QrCode{
			ID:             qrID,
			OrganizationID: organizationID,
			UserID:         userID,
			AssetID:        &assetID,
		}).Error
	}
	if err != nil {
		return "", err
	}

	switch {
	case code.OrganizationID != organizationID:
		return fmt.Sprintf("QR code %s belongs to another workspace", qrID), nil
	case code.AssetID != nil && *code.AssetID != assetID:
		return fmt.Sprintf("QR code %s is already linked to an asset", qrID), nil
	}
	return "", tx.Model(&code).Update("asset_id", assetID).Error
}
