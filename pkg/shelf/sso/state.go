package sso

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const stateTTL = 10 * time.Minute

var errInvalidState = errors.New("invalid sso state")

// stateClaims round-trip through the identity provider in the state parameter.
type stateClaims struct {
	OrganizationID string `json:"org"`
	Nonce          string `json:"nonce"`
	jwt.RegisteredClaims
}

func signState(secret []byte, organizationID, nonce string, now time.Time) (string, error) {
	claims := stateClaims{
		OrganizationID: organizationID,
		Nonce:          nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
			Issuer:    "shelf-sso",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseState(secret []byte, state string) (*stateClaims, error) {
	var claims stateClaims
	token, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidState
		}
		return secret, nil
	}, jwt.WithIssuer("shelf-sso"))
	if err != nil || !token.Valid || claims.OrganizationID == "" || claims.Nonce == "" {
		return nil, errInvalidState
	}
	return &claims, nil
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
