package assets

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/shelf/pkg/shelf/auth"
	"github.com/mikepea/shelf/pkg/shelf/models"
	"github.com/mikepea/shelf/pkg/shelf/shelferr"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// maxUploadBytes caps the size of an uploaded backup
const maxUploadBytes = 10 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Gate checks that the acting user is an administrator
type Gate interface {
	RequireAdmin(ctx context.Context, userID string) error
}

// Handler handles asset backup requests
type Handler struct {
	db     *gorm.DB
	svc    *Service
	gate   Gate
	logger zerolog.Logger
}

// NewHandler creates a new asset backup handler
func NewHandler(db *gorm.DB, gate Gate, logger zerolog.Logger) *Handler {
	return &Handler{
		db:     db,
		svc:    NewService(db),
		gate:   gate,
		logger: logger.With().Str("component", "assets").Logger(),
	}
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Imported int `json:"imported"`
}

func (h *Handler) fail(c *gin.Context, err error) {
	userID, _ := auth.GetUserID(c)
	extra := shelferr.AdditionalData{"userId": userID, "organizationId": c.Param("organizationId")}

	var importErr *ImportError
	switch {
	case errors.As(err, &importErr):
		err = shelferr.Validation(shelferr.LabelAssets, "The backup contains invalid rows", shelferr.AdditionalData{"rows": importErr.Rows})
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = shelferr.NotFound(shelferr.LabelAssets, "Organization not found",
			"The organization you are trying to access does not exist or you do not have permission to access it.", err, nil)
	}
	shelferr.Respond(c, h.logger, err, extra)
}

// authorize runs the admin check and loads the organization from the route.
func (h *Handler) authorize(c *gin.Context) (*models.Organization, bool) {
	userID, _ := auth.GetUserID(c)
	if err := h.gate.RequireAdmin(c.Request.Context(), userID); err != nil {
		h.fail(c, err)
		return nil, false
	}

	var org models.Organization
	if err := h.db.WithContext(c.Request.Context()).First(&org, "id = ?", c.Param("organizationId")).Error; err != nil {
		h.fail(c, err)
		return nil, false
	}
	return &org, true
}

// Export downloads the organization's assets. The filename extension selects the format:
// .xlsx for a spreadsheet, anything else for CSV.
func (h *Handler) Export(c *gin.Context) {
	org, ok := h.authorize(c)
	if !ok {
		return
	}

	rows, err := h.svc.Rows(c.Request.Context(), org.ID)
	if err != nil {
		h.fail(c, err)
		return
	}

	filename := path.Base(c.Param("filename"))
	c.Header("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(filename, `"`, "")+`"`)

	if strings.EqualFold(path.Ext(filename), ".xlsx") {
		c.Header("Content-Type", xlsxContentType)
		c.Status(http.StatusOK)
		if err := WriteXLSX(c.Writer, rows); err != nil {
			h.logger.Error().Err(err).Str("organization_id", org.ID).Msg("failed to write xlsx export")
		}
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := WriteCSV(c.Writer, rows); err != nil {
		h.logger.Error().Err(err).Str("organization_id", org.ID).Msg("failed to write csv export")
	}
}

// Import restores assets from an uploaded CSV backup. The assets are owned by the
// organization owner. Either every row is imported or none is.
func (h *Handler) Import(c *gin.Context) {
	org, ok := h.authorize(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		h.fail(c, shelferr.Validation(shelferr.LabelAssets, "Please upload a CSV file in the \"file\" field", nil))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, shelferr.Validation(shelferr.LabelAssets, "Unable to read the uploaded file", nil))
		return
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		h.fail(c, err)
		return
	}

	imported, err := h.svc.Import(c.Request.Context(), org.ID, org.OwnerID, rows)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.logger.Info().Str("organization_id", org.ID).Int("imported", imported).Msg("assets imported")
	c.JSON(http.StatusOK, ImportResult{Imported: imported})
}

// RegisterRoutes registers asset backup routes on the given router group.
// The token role is checked first; the handlers then confirm the role against the database.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/export-org-assets/:organizationId/:filename", auth.AuthMiddleware(), auth.RequireAdmin(), h.Export)
	rg.POST("/import-org-assets/:organizationId", auth.AuthMiddleware(), auth.RequireAdmin(), h.Import)
}
