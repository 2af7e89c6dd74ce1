// Package workspace manages the team members of a workspace.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

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

var (
	// viewers may list the team
	viewers = []models.OrganizationRole{
		models.OrganizationRoleOwner,
		models.OrganizationRoleAdmin,
		models.OrganizationRoleSelfService,
		models.OrganizationRoleBase,
	}
	// managers may add and delete team members
	managers = []models.OrganizationRole{
		models.OrganizationRoleOwner,
		models.OrganizationRoleAdmin,
	}
)

// Handler handles workspace team requests
type Handler struct {
	db     *gorm.DB
	gate   Gate
	logger zerolog.Logger
}

// NewHandler creates a new workspace handler
func NewHandler(db *gorm.DB, gate Gate, logger zerolog.Logger) *Handler {
	return &Handler{db: db, gate: gate, logger: logger.With().Str("component", "workspace").Logger()}
}

// OwnerResponse represents the workspace owner in API responses
type OwnerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// TeamMemberResponse represents a team member in API responses
type TeamMemberResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	UserID       *string `json:"user_id"`
	CustodyCount int     `json:"custody_count"`
	CreatedAt    string  `json:"created_at"`
}

// TeamResponse is the team of a workspace
type TeamResponse struct {
	Owner       OwnerResponse        `json:"owner"`
	TeamMembers []TeamMemberResponse `json:"team_members"`
}

// CreateTeamMemberRequest represents the request to add a team member
type CreateTeamMemberRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

func (h *Handler) fail(c *gin.Context, err error) {
	userID, _ := auth.GetUserID(c)
	shelferr.Respond(c, h.logger, err, shelferr.AdditionalData{
		"userId":         userID,
		"organizationId": c.Param("organizationId"),
	})
}

func (h *Handler) authorize(c *gin.Context, roles []models.OrganizationRole) bool {
	userID, _ := auth.GetUserID(c)
	if err := h.gate.RequireWorkspaceRole(c.Request.Context(), userID, c.Param("organizationId"), roles...); err != nil {
		h.fail(c, err)
		return false
	}
	return true
}

func toTeamMemberResponse(m models.TeamMember) TeamMemberResponse {
	return TeamMemberResponse{
		ID:           m.ID,
		Name:         m.Name,
		UserID:       m.UserID,
		CustodyCount: len(m.Custodies),
		CreatedAt:    m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ListTeam returns the owner and team members of the workspace
func (h *Handler) ListTeam(c *gin.Context) {
	if !h.authorize(c, viewers) {
		return
	}
	orgID := c.Param("organizationId")
	db := h.db.WithContext(c.Request.Context())

	var org models.Organization
	if err := db.Preload("Owner").First(&org, "id = ?", orgID).Error; err != nil {
		h.fail(c, fmt.Errorf("load workspace %s: %w", orgID, err))
		return
	}

	var members []models.TeamMember
	if err := db.Preload("Custodies").Where("organization_id = ?", orgID).Order("name ASC").Find(&members).Error; err != nil {
		h.fail(c, fmt.Errorf("list team members: %w", err))
		return
	}

	resp := TeamResponse{
		Owner: OwnerResponse{
			ID:    org.Owner.ID,
			Email: org.Owner.Email,
			Name:  org.Owner.FullName(),
		},
		TeamMembers: make([]TeamMemberResponse, len(members)),
	}
	for i, m := range members {
		resp.TeamMembers[i] = toTeamMemberResponse(m)
	}

	c.JSON(http.StatusOK, resp)
}

// CreateTeamMember adds a team member without an account
func (h *Handler) CreateTeamMember(c *gin.Context) {
	if !h.authorize(c, managers) {
		return
	}

	var req CreateTeamMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, shelferr.Validation(shelferr.LabelTeam, err.Error(), nil))
		return
	}

	member := models.TeamMember{
		OrganizationID: c.Param("organizationId"),
		Name:           strings.TrimSpace(req.Name),
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&member).Error; err != nil {
		h.fail(c, shelferr.Dependency(shelferr.LabelTeam, "Failed to create team member", err, nil))
		return
	}

	c.JSON(http.StatusCreated, toTeamMemberResponse(member))
}

// DeleteTeamMember soft deletes a team member. Members that still hold custody of assets
// cannot be deleted.
func (h *Handler) DeleteTeamMember(c *gin.Context) {
	if !h.authorize(c, managers) {
		return
	}

	teamMemberID := strings.TrimSpace(c.PostForm("teamMemberId"))
	if teamMemberID == "" {
		h.fail(c, shelferr.Validation(shelferr.LabelTeam, "teamMemberId is required", nil))
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var member models.TeamMember
		err := tx.Preload("Custodies").
			Where("id = ? AND organization_id = ?", teamMemberID, c.Param("organizationId")).
			First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shelferr.NotFound(shelferr.LabelTeam, "Team member not found",
				"The team member you are trying to delete does not exist.", err, shelferr.AdditionalData{"teamMemberId": teamMemberID})
		}
		if err != nil {
			return fmt.Errorf("load team member %s: %w", teamMemberID, err)
		}

		if n := len(member.Custodies); n > 0 {
			return shelferr.New(shelferr.Options{
				Kind:  shelferr.KindValidation,
				Label: shelferr.LabelTeam,
				Title: "Unable to delete team member",
				Message: fmt.Sprintf("The team member you are trying to delete has custody over %d assets. "+
					"Please release custody before deleting the user.", n),
				AdditionalData: shelferr.AdditionalData{"teamMemberId": teamMemberID, "custodies": n},
			})
		}

		return tx.Delete(&member).Error
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Team member deleted"})
}

// RegisterRoutes registers workspace routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Use(auth.AuthMiddleware())
	rg.GET("/:organizationId/team", h.ListTeam)
	rg.POST("/:organizationId/team", h.CreateTeamMember)
	rg.POST("/:organizationId/team/delete", h.DeleteTeamMember)
}
