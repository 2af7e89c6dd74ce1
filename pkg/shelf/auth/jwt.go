package auth

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims represents the JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

var (
	secretMu sync.RWMutex
	secret   []byte
)

// SetJWTSecret overrides the signing secret. An empty value restores the default lookup.
func SetJWTSecret(s string) {
	secretMu.Lock()
	defer secretMu.Unlock()
	secret = []byte(s)
}

// getJWTSecret returns the configured secret, the JWT_SECRET environment variable, or a
// default for development
func getJWTSecret() []byte {
	secretMu.RLock()
	s := secret
	secretMu.RUnlock()
	if len(s) > 0 {
		return s
	}
	if env := os.Getenv("JWT_SECRET"); env != "" {
		return []byte(env)
	}
	// Default for development only - should be set in production
	return []byte("shelf-dev-secret-change-in-production")
}

// getTokenDuration returns the token validity duration
func getTokenDuration() time.Duration {
	return 24 * time.Hour
}

// GenerateToken creates a new JWT token for a user
func GenerateToken(userID, email, role string) (string, error) {
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(getTokenDuration())),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "shelf",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(getJWTSecret())
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return getJWTSecret(), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
