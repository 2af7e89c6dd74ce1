// Package bookings cancels and deletes bookings.
package bookings

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/shelf/pkg/shelf/auth"
	"github.com/mikepea/shelf/pkg/shelf/models"
	"github.com/mikepea/shelf/pkg/shelf/shelferr"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Gate answers workspace permission questions
type Gate interface {
	RequireWorkspaceRole(ctx context.Context, userID, organizationID string, roles ...models.OrganizationRole) error
}

var managers = []models.OrganizationRole{models.OrganizationRoleOwner, models.OrganizationRoleAdmin}

// Handler handles booking requests
type Handler struct {
	db     *gorm.DB
	gate   Gate
	logger zerolog.Logger
}

// NewHandler creates a new bookings handler
func NewHandler(db *gorm.DB, gate Gate, logger zerolog.Logger) *Handler {
	return &Handler{db: db, gate: gate, logger: logger.With().Str("component", "bookings").Logger()}
}

// BookingResponse represents a booking in API responses
type BookingResponse struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
}

func (h *Handler) fail(c *gin.Context, err error) {
	userID, _ := auth.GetUserID(c)
	shelferr.Respond(c, h.logger, err, shelferr.AdditionalData{"userId": userID, "bookingId": c.Param("bookingId")})
}

// load fetches the booking from the route and checks the caller may manage its workspace.
func (h *Handler) load(c *gin.Context) (*models.Booking, error) {
	bookingID := c.Param("bookingId")

	var booking models.Booking
	err := h.db.WithContext(c.Request.Context()).First(&booking, "id = ?", bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shelferr.NotFound(shelferr.LabelBooking, "Booking not found",
			"The booking you are trying to access does not exist or you do not have permission to access it.", err, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", bookingID, err)
	}

	userID, _ := auth.GetUserID(c)
	if err := h.gate.RequireWorkspaceRole(c.Request.Context(), userID, booking.OrganizationID, managers...); err != nil {
		return nil, err
	}
	return &booking, nil
}

func notCancellable(status models.BookingStatus) error {
	return shelferr.Validation(shelferr.LabelBooking,
		fmt.Sprintf("A booking with status %s cannot be cancelled", status),
		shelferr.AdditionalData{"status": string(status)})
}

// Cancel cancels a reserved, ongoing or overdue booking
func (h *Handler) Cancel(c *gin.Context) {
	booking, err := h.load(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !booking.Cancellable() {
		h.fail(c, notCancellable(booking.Status))
		return
	}

	// The status guard makes a concurrent transition win over this cancel.
	result := h.db.WithContext(c.Request.Context()).
		Model(booking).
		Where("status IN ?", []models.BookingStatus{models.BookingStatusReserved, models.BookingStatusOngoing, models.BookingStatusOverdue}).
		Update("status", models.BookingStatusCancelled)
	if result.Error != nil {
		h.fail(c, shelferr.Dependency(shelferr.LabelBooking, "Failed to cancel booking", result.Error, nil))
		return
	}
	if result.RowsAffected == 0 {
		h.fail(c, notCancellable(booking.Status))
		return
	}

	h.logger.Info().Str("booking_id", booking.ID).Msg("booking cancelled")
	c.JSON(http.StatusOK, BookingResponse{
		ID:             booking.ID,
		OrganizationID: booking.OrganizationID,
		Name:           booking.Name,
		Status:         string(models.BookingStatusCancelled),
	})
}

// Delete soft deletes a booking
func (h *Handler) Delete(c *gin.Context) {
	booking, err := h.load(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(booking).Error; err != nil {
		h.fail(c, shelferr.Dependency(shelferr.LabelBooking, "Failed to delete booking", err, nil))
		return
	}

	h.logger.Info().Str("booking_id", booking.ID).Msg("booking deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Booking deleted"})
}

// RegisterRoutes registers booking routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Use(auth.AuthMiddleware())
	rg.POST("/:bookingId/cancel", h.Cancel)
	rg.POST("/:bookingId/delete", h.Delete)
}
