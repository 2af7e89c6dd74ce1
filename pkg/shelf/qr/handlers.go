package qr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/shelf/pkg/shelf/shelferr"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Handler handles QR code scans
type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

// NewHandler creates a new QR scan handler
func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.With().Str("component", "qr").Logger()}
}

// Scan redirects a scanned code. Linked codes go to their asset; orphaned codes go to the
// page where they can be linked to an asset.
func (h *Handler) Scan(c *gin.Context) {
	qrID := c.Param("qrId")

	code, err := h.svc.Get(c.Request.Context(), qrID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		shelferr.Respond(c, h.logger, shelferr.NotFound(shelferr.LabelQR, "QR code not found",
			"This QR code doesn't exist or it has been deleted.", err, nil), shelferr.AdditionalData{"qrId": qrID})
		return
	}
	if err != nil {
		shelferr.Respond(c, h.logger, shelferr.Dependency(shelferr.LabelQR, "Failed to load QR code", err, nil), shelferr.AdditionalData{"qrId": qrID})
		return
	}

	if code.IsOrphaned() {
		c.Redirect(http.StatusFound, "/qr/"+code.ID+"/link")
		return
	}
	c.Redirect(http.StatusFound, "/assets/"+*code.AssetID)
}

// RegisterRoutes registers the scan route on the root router
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/qr/:qrId", h.Scan)
}
