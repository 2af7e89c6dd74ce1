package sso

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mikepea/shelf/pkg/shelf/auth"
	"github.com/mikepea/shelf/pkg/shelf/metrics"
	"github.com/mikepea/shelf/pkg/shelf/models"
	"github.com/mikepea/shelf/pkg/shelf/shelferr"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Directory finds the workspace that handles SSO for an email domain
type Directory interface {
	FindBySsoDomain(ctx context.Context, domain string) (*models.Organization, error)
}

// Handler handles SSO login requests
type Handler struct {
	db          *gorm.DB
	directory   Directory
	provider    Provider
	stateSecret []byte
	logger      zerolog.Logger
	validate    *validator.Validate
	now         func() time.Time
}

// NewHandler creates a new SSO handler. stateSecret signs the state parameter.
func NewHandler(db *gorm.DB, directory Directory, provider Provider, stateSecret string, logger zerolog.Logger) *Handler {
	return &Handler{
		db:          db,
		directory:   directory,
		provider:    provider,
		stateSecret: []byte(stateSecret),
		logger:      logger.With().Str("component", "sso").Logger(),
		validate:    validator.New(),
		now:         time.Now,
	}
}

// LoginResponse is returned after a successful SSO login
type LoginResponse struct {
	Token          string            `json:"token"`
	User           auth.UserResponse `json:"user"`
	OrganizationID string            `json:"organization_id"`
	Role           string            `json:"role"`
}

func (h *Handler) fail(c *gin.Context, err error, outcome string) {
	if outcome != "" {
		metrics.SsoLogins.WithLabelValues(outcome).Inc()
	}
	shelferr.Respond(c, h.logger, err, nil)
}

// Login sends the browser to the identity provider of the workspace that owns the email's
// domain.
func (h *Handler) Login(c *gin.Context) {
	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	if err := h.validate.Var(email, "required,email"); err != nil {
		h.fail(c, shelferr.Validation(shelferr.LabelSSO, "Please enter a valid email address", nil), "")
		return
	}
	domain := email[strings.LastIndex(email, "@")+1:]

	org, err := h.directory.FindBySsoDomain(c.Request.Context(), domain)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		h.fail(c, shelferr.NotFound(shelferr.LabelSSO, "SSO not available",
			"No workspace with SSO enabled was found for this email domain.", err, shelferr.AdditionalData{"domain": domain}), "")
		return
	}
	if err != nil {
		h.fail(c, shelferr.Dependency(shelferr.LabelSSO, "", err, nil), "")
		return
	}

	nonce, err := randomString(24)
	if err != nil {
		h.fail(c, shelferr.Dependency(shelferr.LabelSSO, "", fmt.Errorf("generate nonce: %w", err), nil), "")
		return
	}
	state, err := signState(h.stateSecret, org.ID, nonce, h.now())
	if err != nil {
		h.fail(c, shelferr.Dependency(shelferr.LabelSSO, "", fmt.Errorf("sign state: %w", err), nil), "")
		return
	}

	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state, nonce))
}

// Callback completes the login: it verifies the identity, maps the user's groups onto a
// workspace role, provisions the user and returns a session token.
func (h *Handler) Callback(c *gin.Context) {
	ctx := c.Request.Context()

	state, err := parseState(h.stateSecret, c.Query("state"))
	if err != nil {
		h.fail(c, shelferr.Validation(shelferr.LabelSSO, "Invalid or expired login state", nil), metrics.OutcomeFailure)
		return
	}

	code := c.Query("code")
	if code == "" {
		desc := c.Query("error_description")
		if desc == "" {
			desc = c.Query("error")
		}
		h.fail(c, shelferr.New(shelferr.Options{
			Kind:           shelferr.KindUnauthorized,
			Label:          shelferr.LabelSSO,
			Message:        "Authentication failed",
			AdditionalData: shelferr.AdditionalData{"reason": desc},
		}), metrics.OutcomeFailure)
		return
	}

	identity, err := h.provider.Exchange(ctx, code)
	if err != nil {
		h.fail(c, shelferr.New(shelferr.Options{
			Kind:    shelferr.KindUnauthorized,
			Label:   shelferr.LabelSSO,
			Message: "Unable to verify your identity",
			Cause:   err,
		}), metrics.OutcomeFailure)
		return
	}
	if identity.Nonce != state.Nonce {
		h.fail(c, shelferr.Validation(shelferr.LabelSSO, "Invalid nonce", nil), metrics.OutcomeFailure)
		return
	}
	if !identity.EmailVerified {
		h.fail(c, shelferr.Forbidden(shelferr.LabelSSO, "Your email address has not been verified by the identity provider",
			shelferr.AdditionalData{"email": identity.Email}), metrics.OutcomeDenied)
		return
	}

	var org models.Organization
	if err := h.db.WithContext(ctx).Preload("SsoDetails").First(&org, "id = ?", state.OrganizationID).Error; err != nil {
		h.fail(c, shelferr.Make(err, nil).WithLabel(shelferr.LabelSSO), metrics.OutcomeFailure)
		return
	}
	if !org.EnabledSso || org.SsoDetails == nil {
		h.fail(c, shelferr.Forbidden(shelferr.LabelSSO, "SSO is not enabled for this workspace", nil), metrics.OutcomeDenied)
		return
	}

	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if !strings.HasSuffix(email, "@"+org.SsoDetails.Domain) {
		h.fail(c, shelferr.Forbidden(shelferr.LabelSSO, "Your email domain does not match the workspace SSO domain",
			shelferr.AdditionalData{"email": email}), metrics.OutcomeDenied)
		return
	}

	role, ok := ResolveRole(org.SsoDetails, identity.Groups)
	if !ok {
		h.fail(c, shelferr.Forbidden(shelferr.LabelSSO, "No role mapped for this user",
			shelferr.AdditionalData{"email": email, "organizationId": org.ID}), metrics.OutcomeDenied)
		return
	}

	user, err := h.provision(ctx, email, identity, org.ID, role)
	if err != nil {
		h.fail(c, shelferr.Dependency(shelferr.LabelSSO, "", err, nil), metrics.OutcomeFailure)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		h.fail(c, shelferr.Dependency(shelferr.LabelSSO, "", err, nil), metrics.OutcomeFailure)
		return
	}

	metrics.SsoLogins.WithLabelValues(metrics.OutcomeSuccess).Inc()
	h.logger.Info().Str("user_id", user.ID).Str("organization_id", org.ID).Str("role", string(role)).Msg("sso login")

	c.JSON(http.StatusOK, LoginResponse{
		Token:          token,
		User:           auth.NewUserResponse(*user),
		OrganizationID: org.ID,
		Role:           string(role),
	})
}

// provision finds or creates the user and sets their role in the workspace. The role is
// rewritten on every login so group changes at the identity provider take effect.
func (h *Handler) provision(ctx context.Context, email string, identity *Identity, organizationID string, role models.OrganizationRole) (*models.User, error) {
	var user models.User
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = models.User{
				Email:     email,
				FirstName: identity.GivenName,
				LastName:  identity.FamilyName,
				Role:      models.RoleUser,
				SSO:       true,
			}
			err = auth.CreateUserWithWorkspace(tx, &user)
		}
		if err != nil {
			return fmt.Errorf("find or create user %s: %w", email, err)
		}

		membership := models.UserOrganization{OrganizationID: organizationID, UserID: user.ID, Role: role}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
		}).Create(&membership).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// RegisterRoutes registers SSO routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/login", h.Login)
	rg.GET("/callback", h.Callback)
}
