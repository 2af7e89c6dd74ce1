// Package config loads server configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment represents the deployment environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
	EnvTest        Environment = "test"
)

// DefaultMaxOrphanBatch bounds the number of orphaned QR codes a single request may create.
const DefaultMaxOrphanBatch = 1000

// Config holds server configuration loaded from environment variables.
type Config struct {
	Environment    Environment
	LogLevel       string
	DBPath         string
	BaseURL        string
	Port           string
	JWTSecret      string
	MaxOrphanBatch int
	AutoMigrate    bool

	SSO SSOConfig

	AdminEmail    string
	AdminPassword string
}

// SSOConfig configures the OIDC identity provider used for workspace SSO.
// SSO login is disabled when Issuer is empty.
type SSOConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	GroupsClaim  string
}

// Enabled reports whether an identity provider is configured.
func (s SSOConfig) Enabled() bool {
	return s.Issuer != "" && s.ClientID != ""
}

// Load reads configuration from the environment.
// Variables from the given .env files are loaded first; missing files are ignored and
// variables already set in the process environment win.
func Load(envFiles ...string) Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	env := Environment(os.Getenv("SHELF_ENV"))
	switch env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		env = EnvDevelopment
	}

	maxBatch := getEnvInt("SHELF_MAX_ORPHAN_BATCH", DefaultMaxOrphanBatch)
	if maxBatch <= 0 {
		maxBatch = DefaultMaxOrphanBatch
	}

	return Config{
		Environment:    env,
		LogLevel:       getEnv("SHELF_LOG_LEVEL", "info"),
		DBPath:         getEnv("SHELF_DB_PATH", "shelf.db"),
		BaseURL:        strings.TrimRight(getEnv("SHELF_BASE_URL", "http://localhost:8080"), "/"),
		Port:           getEnv("PORT", "8080"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		MaxOrphanBatch: maxBatch,
		AutoMigrate:    getEnvBool("SHELF_AUTO_MIGRATE", true),
		SSO: SSOConfig{
			Issuer:       os.Getenv("SHELF_SSO_ISSUER"),
			ClientID:     os.Getenv("SHELF_SSO_CLIENT_ID"),
			ClientSecret: os.Getenv("SHELF_SSO_CLIENT_SECRET"),
			GroupsClaim:  getEnv("SHELF_SSO_GROUPS_CLAIM", "groups"),
		},
		AdminEmail:    getEnv("SHELF_ADMIN_EMAIL", "admin@shelf.local"),
		AdminPassword: getEnv("SHELF_ADMIN_PASSWORD", "changeme"),
	}
}

// IsProduction reports whether the server runs in production.
func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func getEnv(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

// getEnvInt reads an integer from an environment variable, returning the default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvBool reads a boolean from an environment variable, returning the default if unset or invalid.
func getEnvBool(key string, defaultVal bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultVal
	}
}
