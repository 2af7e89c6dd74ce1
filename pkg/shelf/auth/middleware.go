package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/shelf/pkg/shelf/models"
	"github.com/mikepea/shelf/pkg/shelf/shelferr"
)

const (
	// ContextKeyUserID is the key for user ID in gin context
	ContextKeyUserID = "user_id"
	// ContextKeyEmail is the key for email in gin context
	ContextKeyEmail = "email"
	// ContextKeyRole is the key for the system role in gin context
	ContextKeyRole = "role"
)

func abort(c *gin.Context, err *shelferr.Error) {
	c.AbortWithStatusJSON(err.Status, shelferr.Envelope{Error: err.ToPayload()})
}

// AuthMiddleware validates JWT tokens and sets user info in context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, shelferr.New(shelferr.Options{Kind: shelferr.KindUnauthorized, Label: shelferr.LabelAuth, Message: "Authorization header required"}))
			return
		}

		// Expect "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abort(c, shelferr.New(shelferr.Options{Kind: shelferr.KindUnauthorized, Label: shelferr.LabelAuth, Message: "Invalid authorization header format"}))
			return
		}

		claims, err := ValidateToken(parts[1])
		if err != nil {
			msg := "Invalid token"
			if err == ErrExpiredToken {
				msg = "Token has expired"
			}
			abort(c, shelferr.New(shelferr.Options{Kind: shelferr.KindUnauthorized, Label: shelferr.LabelAuth, Message: msg}))
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyEmail, claims.Email)
		c.Set(ContextKeyRole, claims.Role)

		c.Next()
	}
}

// RequireAdmin middleware checks the role claim of the token.
// Handlers that mutate data also run Gate.RequireAdmin against the database.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextKeyRole)
		if !exists {
			abort(c, shelferr.Unauthorized(shelferr.LabelAuth))
			return
		}

		if role != string(models.RoleAdmin) {
			abort(c, shelferr.Forbidden(shelferr.LabelAuth, "Admin access required", nil))
			return
		}

		c.Next()
	}
}

// GetUserID returns the user ID from the gin context
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok && id != ""
}
