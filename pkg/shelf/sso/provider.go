// Package sso signs users in through the workspace's identity provider and maps identity
// provider groups onto workspace roles.
package sso

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/mikepea/shelf/pkg/shelf/config"
	"golang.org/x/oauth2"
)

// Identity is what the identity provider asserts about a user
type Identity struct {
	Subject string
	Email   string
	// EmailVerified is the email_verified claim. Unverified emails are never matched to accounts.
	EmailVerified bool
	GivenName     string
	FamilyName    string
	Nonce         string
	Groups        []string
}

// Provider is an OpenID Connect identity provider
type Provider interface {
	AuthCodeURL(state, nonce string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// OIDCProvider talks to a discovered OpenID Connect issuer
type OIDCProvider struct {
	config      oauth2.Config
	verifier    *oidc.IDTokenVerifier
	groupsClaim string
}

// NewOIDCProvider discovers the issuer in cfg. The callback is served under baseURL.
func NewOIDCProvider(ctx context.Context, cfg config.SSOConfig, baseURL string) (*OIDCProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc issuer %s: %w", cfg.Issuer, err)
	}

	return &OIDCProvider{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  baseURL + "/api/sso/callback",
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier:    provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		groupsClaim: cfg.GroupsClaim,
	}, nil
}

// AuthCodeURL returns the identity provider URL the browser is sent to.
func (p *OIDCProvider) AuthCodeURL(state, nonce string) string {
	return p.config.AuthCodeURL(state, oidc.Nonce(nonce))
}

// Exchange trades the authorization code for a verified ID token.
func (p *OIDCProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("no id_token in token response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parse id token claims: %w", err)
	}

	return &Identity{
		Subject:       idToken.Subject,
		Email:         stringClaim(claims, "email"),
		EmailVerified: boolClaim(claims["email_verified"]),
		GivenName:     stringClaim(claims, "given_name"),
		FamilyName:    stringClaim(claims, "family_name"),
		Nonce:         idToken.Nonce,
		Groups:        groupsClaim(claims[p.groupsClaim]),
	}, nil
}

func stringClaim(claims map[string]any, name string) string {
	s, _ := claims[name].(string)
	return s
}

// boolClaim accepts a JSON boolean or the strings "true" and "false", which some
// providers send instead.
func boolClaim(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		verified, _ := strconv.ParseBool(b)
		return verified
	}
	return false
}

// groupsClaim accepts a list of group ids or a single id.
func groupsClaim(v any) []string {
	switch g := v.(type) {
	case string:
		return []string{g}
	case []any:
		groups := make([]string, 0, len(g))
		for _, item := range g {
			if s, ok := item.(string); ok {
				groups = append(groups, s)
			}
		}
		return groups
	}
	return nil
}
