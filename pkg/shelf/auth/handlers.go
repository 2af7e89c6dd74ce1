package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/shelf/pkg/shelf/models"
	"github.com/mikepea/shelf/pkg/shelf/shelferr"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Handler handles authentication requests
type Handler struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewHandler creates a new auth handler
func NewHandler(db *gorm.DB, logger zerolog.Logger) *Handler {
	return &Handler{db: db, logger: logger.With().Str("component", "auth").Logger()}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// NewUserResponse converts a user to its response form.
func NewUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
	}
}

// CreateUserWithWorkspace creates a user together with their personal workspace.
// It runs inside the caller's transaction.
func CreateUserWithWorkspace(tx *gorm.DB, user *models.User) error {
	if err := tx.Create(user).Error; err != nil {
		return err
	}

	workspace := models.Organization{
		Name:    "Personal",
		Type:    models.OrganizationTypePersonal,
		OwnerID: user.ID,
	}
	if err := tx.Create(&workspace).Error; err != nil {
		return err
	}

	return tx.Create(&models.UserOrganization{
		OrganizationID: workspace.ID,
		UserID:         user.ID,
		Role:           models.OrganizationRoleOwner,
	}).Error
}

// Register handles user registration
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shelferr.Respond(c, h.logger, shelferr.Validation(shelferr.LabelAuth, err.Error(), nil), nil)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	// Check if email already exists
	var existing models.User
	if err := h.db.WithContext(c.Request.Context()).Where("email = ?", req.Email).First(&existing).Error; err == nil {
		shelferr.Respond(c, h.logger, shelferr.New(shelferr.Options{
			Kind:    shelferr.KindValidation,
			Status:  http.StatusConflict,
			Label:   shelferr.LabelAuth,
			Message: "Email already registered",
		}), nil)
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		shelferr.Respond(c, h.logger, shelferr.Dependency(shelferr.LabelAuth, "Failed to create user", err, nil), nil)
		return
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		shelferr.Respond(c, h.logger, shelferr.Dependency(shelferr.LabelAuth, "Failed to process password", err, nil), nil)
		return
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: hashed,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         models.RoleUser,
	}
	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		return CreateUserWithWorkspace(tx, &user)
	})
	if err != nil {
		shelferr.Respond(c, h.logger, shelferr.Dependency(shelferr.LabelAuth, "Failed to create user", err, nil), nil)
		return
	}

	token, err := GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		shelferr.Respond(c, h.logger, shelferr.Dependency(shelferr.LabelAuth, "Failed to generate token", err, nil), nil)
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{Token: token, User: NewUserResponse(user)})
}

// Login handles user login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shelferr.Respond(c, h.logger, shelferr.Validation(shelferr.LabelAuth, err.Error(), nil), nil)
		return
	}

	invalid := shelferr.New(shelferr.Options{
		Kind:    shelferr.KindUnauthorized,
		Label:   shelferr.LabelAuth,
		Message: "Invalid email or password",
	})

	var user models.User
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&user).Error; err != nil {
		shelferr.Respond(c, h.logger, invalid, nil)
		return
	}

	// SSO-only users have no password and can never log in here
	if !CheckPassword(req.Password, user.PasswordHash) {
		shelferr.Respond(c, h.logger, invalid, nil)
		return
	}

	token, err := GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		shelferr.Respond(c, h.logger, shelferr.Dependency(shelferr.LabelAuth, "Failed to generate token", err, nil), nil)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: token, User: NewUserResponse(user)})
}

// Me returns the current authenticated user
func (h *Handler) Me(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		shelferr.Respond(c, h.logger, shelferr.Unauthorized(shelferr.LabelAuth), nil)
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, "id = ?", userID).Error; err != nil {
		shelferr.Respond(c, h.logger, shelferr.NotFound(shelferr.LabelAuth, "Not found", "User not found", err, nil), nil)
		return
	}

	c.JSON(http.StatusOK, NewUserResponse(user))
}

// Logout handles user logout (client-side token invalidation)
func (h *Handler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// RegisterRoutes registers auth routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
	rg.POST("/logout", h.Logout)
	rg.GET("/me", AuthMiddleware(), h.Me)
}
