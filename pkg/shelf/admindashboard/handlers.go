package admindashboard

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/shelf/pkg/shelf/auth"
	"github.com/mikepea/shelf/pkg/shelf/models"
	"github.com/mikepea/shelf/pkg/shelf/organizations"
	"github.com/mikepea/shelf/pkg/shelf/qr"
	"github.com/mikepea/shelf/pkg/shelf/shelferr"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// maxFormMemory is the in-memory limit when parsing multipart action forms
const maxFormMemory = 1 << 20

// Handler handles admin dashboard requests
type Handler struct {
	db         *gorm.DB
	dispatcher *Dispatcher
	gate       Gate
	orgs       *organizations.Service
	qr         *qr.Service
	logger     zerolog.Logger
}

// NewHandler creates a new admin dashboard handler
func NewHandler(db *gorm.DB, gate Gate, orgs *organizations.Service, qrSvc *qr.Service, maxOrphans int, logger zerolog.Logger) *Handler {
	return &Handler{
		db:         db,
		dispatcher: NewDispatcher(gate, orgs, qrSvc, maxOrphans),
		gate:       gate,
		orgs:       orgs,
		qr:         qrSvc,
		logger:     logger.With().Str("component", "admin_dashboard").Logger(),
	}
}

// UserResponse represents user data in admin responses
type UserResponse struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Role              string `json:"role"`
	SSO               bool   `json:"sso"`
	CreatedAt         string `json:"created_at"`
	OrganizationCount int64  `json:"organization_count"`
}

func requestContext(c *gin.Context) RequestContext {
	userID, _ := auth.GetUserID(c)
	return RequestContext{UserID: userID, OrganizationID: c.Param("organizationId")}
}

func (h *Handler) respondError(c *gin.Context, err error, rc RequestContext) {
	shelferr.Respond(c, h.logger, h.dispatcher.normalize(err, rc), nil)
}

// GetOrganization returns the organization shown on the dashboard
func (h *Handler) GetOrganization(c *gin.Context) {
	rc := requestContext(c)

	org, err := h.dispatcher.Load(c.Request.Context(), rc)
	if err != nil {
		h.respondError(c, err, rc)
		return
	}

	c.JSON(http.StatusOK, gin.H{"organization": org})
}

// PerformAction applies a form action to the organization
func (h *Handler) PerformAction(c *gin.Context) {
	rc := requestContext(c)

	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.respondError(c, shelferr.Validation(shelferr.LabelAdminDashboard, "Invalid form data", nil), rc)
		return
	}

	result, err := h.dispatcher.Act(c.Request.Context(), rc, c.Request.PostForm)
	if err != nil {
		h.respondError(c, err, rc)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListQrCodes returns the organization's QR codes, optionally only orphaned or linked ones
func (h *Handler) ListQrCodes(c *gin.Context) {
	rc := requestContext(c)
	ctx := c.Request.Context()

	if err := h.gate.RequireAdmin(ctx, rc.UserID); err != nil {
		h.respondError(c, err, rc)
		return
	}

	var orphaned *bool
	if raw := c.Query("orphaned"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondError(c, shelferr.Validation(shelferr.LabelAdminDashboard, "orphaned must be true or false", shelferr.AdditionalData{"orphaned": raw}), rc)
			return
		}
		orphaned = &v
	}

	if err := h.orgs.Exists(ctx, rc.OrganizationID); err != nil {
		h.respondError(c, err, rc)
		return
	}

	codes, err := h.qr.List(ctx, rc.OrganizationID, orphaned)
	if err != nil {
		h.respondError(c, err, rc)
		return
	}

	c.JSON(http.StatusOK, gin.H{"qr_codes": codes, "total": len(codes)})
}

// ListOrganizations returns every organization (admin only)
func (h *Handler) ListOrganizations(c *gin.Context) {
	rc := requestContext(c)

	if err := h.gate.RequireAdmin(c.Request.Context(), rc.UserID); err != nil {
		h.respondError(c, err, rc)
		return
	}

	orgs, err := h.orgs.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.respondError(c, err, rc)
		return
	}

	c.JSON(http.StatusOK, orgs)
}

// ListUsers returns all users (admin only)
func (h *Handler) ListUsers(c *gin.Context) {
	rc := requestContext(c)
	ctx := c.Request.Context()

	if err := h.gate.RequireAdmin(ctx, rc.UserID); err != nil {
		h.respondError(c, err, rc)
		return
	}

	query := h.db.WithContext(ctx).Order("created_at DESC")

	// Optional search by email or name
	if search := c.Query("q"); search != "" {
		like := "%" + search + "%"
		query = query.Where("email LIKE ? OR first_name LIKE ? OR last_name LIKE ?", like, like, like)
	}

	// Optional filter by role
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		h.respondError(c, err, rc)
		return
	}

	var counts []struct {
		UserID string
		Count  int64
	}
	err := h.db.WithContext(ctx).Model(&models.UserOrganization{}).
		Select("user_id, COUNT(*) AS count").
		Group("user_id").
		Scan(&counts).Error
	if err != nil {
		h.respondError(c, err, rc)
		return
	}
	byUser := make(map[string]int64, len(counts))
	for _, row := range counts {
		byUser[row.UserID] = row.Count
	}

	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = UserResponse{
			ID:                user.ID,
			Email:             user.Email,
			FirstName:         user.FirstName,
			LastName:          user.LastName,
			Role:              string(user.Role),
			SSO:               user.SSO,
			CreatedAt:         user.CreatedAt.Format("2006-01-02T15:04:05Z"),
			OrganizationCount: byUser[user.ID],
		}
	}

	c.JSON(http.StatusOK, responses)
}

// RegisterRoutes registers admin dashboard routes on the given router group.
// Every route requires a token; the admin check runs against the database per request.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Use(auth.AuthMiddleware())
	rg.GET("/organizations", h.ListOrganizations)
	rg.GET("/users", h.ListUsers)
	rg.GET("/org/:organizationId", h.GetOrganization)
	rg.POST("/org/:organizationId", h.PerformAction)
	rg.GET("/org/:organizationId/qr-codes", h.ListQrCodes)
}
