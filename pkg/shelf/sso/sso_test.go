package sso

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/shelf/pkg/shelf/auth"
	"github.com/mikepea/shelf/pkg/shelf/models"
	"github.com/mikepea/shelf/pkg/shelf/organizations"
	"github.com/mikepea/shelf/pkg/shelf/shelferr"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "state-secret"

type fakeProvider struct {
	identity *Identity
	err      error
}

func (p *fakeProvider) AuthCodeURL(state, nonce string) string {
	return "https://idp.test/authorize?" + url.Values{"state": {state}, "nonce": {nonce}}.Encode()
}

func (p *fakeProvider) Exchange(context.Context, string) (*Identity, error) {
	return p.identity, p.err
}

type fixture struct {
	db       *gorm.DB
	router   *gin.Engine
	provider *fakeProvider
	org      models.Organization
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(db))

	owner := models.User{Email: "owner@acme.test"}
	require.NoError(t, db.Create(&owner).Error)
	org := models.Organization{Name: "Acme", Type: models.OrganizationTypeTeam, OwnerID: owner.ID, EnabledSso: true}
	require.NoError(t, db.Create(&org).Error)
	require.NoError(t, db.Create(&models.SsoDetails{
		OrganizationID:     org.ID,
		Domain:             "acme.test",
		AdminGroupID:       "grp-admins",
		SelfServiceGroupID: "grp-staff",
	}).Error)

	provider := &fakeProvider{}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(db, organizations.NewService(db), provider, testSecret, zerolog.Nop()).RegisterRoutes(r.Group("/api/sso"))

	return fixture{db: db, router: r, provider: provider, org: org}
}

func (f fixture) get(path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

// login runs the login redirect and returns the state and nonce handed to the provider.
func (f fixture) login(t *testing.T, email string) (string, string) {
	t.Helper()
	resp := f.get("/api/sso/login?email=" + url.QueryEscape(email))
	require.Equal(t, http.StatusFound, resp.Code, resp.Body.String())

	loc, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	return loc.Query().Get("state"), loc.Query().Get("nonce")
}

func (f fixture) callback(state string) *httptest.ResponseRecorder {
	return f.get("/api/sso/callback?" + url.Values{"state": {state}, "code": {"abc"}}.Encode())
}

func TestResolveRole(t *testing.T) {
	details := &models.SsoDetails{AdminGroupID: "admins", SelfServiceGroupID: "staff"}

	tests := []struct {
		name   string
		groups []string
		role   models.OrganizationRole
		ok     bool
	}{
		{"admin", []string{"admins"}, models.OrganizationRoleAdmin, true},
		{"self service", []string{"other", "staff"}, models.OrganizationRoleSelfService, true},
		{"admin wins", []string{"staff", "admins"}, models.OrganizationRoleAdmin, true},
		{"no match", []string{"other"}, "", false},
		{"no groups", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, ok := ResolveRole(details, tt.groups)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.role, role)
		})
	}

	_, ok := ResolveRole(nil, []string{"admins"})
	assert.False(t, ok)
	_, ok = ResolveRole(&models.SsoDetails{}, []string{""})
	assert.False(t, ok)
}

func TestStateRoundTrip(t *testing.T) {
	secret := []byte(testSecret)
	now := time.Now()

	state, err := signState(secret, "org-1", "n1", now)
	require.NoError(t, err)

	claims, err := parseState(secret, state)
	require.NoError(t, err)
	assert.Equal(t, "org-1", claims.OrganizationID)
	assert.Equal(t, "n1", claims.Nonce)

	_, err = parseState([]byte("other"), state)
	assert.Error(t, err)

	expired, err := signState(secret, "org-1", "n1", now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = parseState(secret, expired)
	assert.Error(t, err)
}

func TestGroupsClaim(t *testing.T) {
	assert.Equal(t, []string{"a"}, groupsClaim("a"))
	assert.Equal(t, []string{"a", "b"}, groupsClaim([]any{"a", 3, "b"}))
	assert.Nil(t, groupsClaim(nil))
}

func TestLoginRedirects(t *testing.T) {
	f := newFixture(t)

	state, nonce := f.login(t, "Jane@ACME.test")
	assert.NotEmpty(t, nonce)

	claims, err := parseState([]byte(testSecret), state)
	require.NoError(t, err)
	assert.Equal(t, f.org.ID, claims.OrganizationID)
}

func TestLoginUnknownDomain(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusNotFound, f.get("/api/sso/login?email=jane@other.test").Code)
	assert.Equal(t, http.StatusBadRequest, f.get("/api/sso/login?email=not-an-email").Code)

	require.NoError(t, f.db.Model(&f.org).Update("enabled_sso", false).Error)
	assert.Equal(t, http.StatusNotFound, f.get("/api/sso/login?email=jane@acme.test").Code)
}

func TestCallbackProvisionsUser(t *testing.T) {
	f := newFixture(t)
	state, nonce := f.login(t, "jane@acme.test")
	f.provider.identity = &Identity{
		Subject:   "sub-1",
		Email:         "jane@acme.test",
		EmailVerified: true,
		GivenName:     "Jane",
		Nonce:         nonce,
		Groups:        []string{"grp-staff"},
	}

	resp := f.callback(state)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body LoginResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "SELF_SERVICE", body.Role)
	assert.Equal(t, f.org.ID, body.OrganizationID)

	claims, err := auth.ValidateToken(body.Token)
	require.NoError(t, err)
	assert.Equal(t, body.User.ID, claims.UserID)

	var user models.User
	require.NoError(t, f.db.First(&user, "email = ?", "jane@acme.test").Error)
	assert.True(t, user.SSO)
	assert.Empty(t, user.PasswordHash)

	// Promotion at the identity provider updates the existing membership.
	state, nonce = f.login(t, "jane@acme.test")
	f.provider.identity.Nonce = nonce
	f.provider.identity.Groups = []string{"grp-admins"}
	resp = f.callback(state)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var memberships []models.UserOrganization
	require.NoError(t, f.db.Where("organization_id = ? AND user_id = ?", f.org.ID, user.ID).Find(&memberships).Error)
	require.Len(t, memberships, 1)
	assert.Equal(t, models.OrganizationRoleAdmin, memberships[0].Role)
}

func TestCallbackRejections(t *testing.T) {
	tests := []struct {
		name     string
		identity func(nonce string) *Identity
		err      error
		status   int
		message  string
	}{
		{
			name:     "no mapped role",
			identity: func(n string) *Identity { return &Identity{Email: "jane@acme.test", EmailVerified: true, Nonce: n, Groups: []string{"other"}} },
			status:   http.StatusForbidden,
			message:  "No role mapped for this user",
		},
		{
			name:     "foreign domain",
			identity: func(n string) *Identity { return &Identity{Email: "jane@evil.test", EmailVerified: true, Nonce: n, Groups: []string{"grp-admins"}} },
			status:   http.StatusForbidden,
		},
		{
			name:     "unverified email",
			identity: func(n string) *Identity { return &Identity{Email: "jane@acme.test", Nonce: n, Groups: []string{"grp-admins"}} },
			status:   http.StatusForbidden,
			message:  "Your email address has not been verified by the identity provider",
		},
		{
			name:     "nonce mismatch",
			identity: func(string) *Identity { return &Identity{Email: "jane@acme.test", Nonce: "replayed", Groups: []string{"grp-admins"}} },
			status:   http.StatusBadRequest,
		},
		{
			name:   "exchange failure",
			err:    errors.New("invalid_grant"),
			status: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			state, nonce := f.login(t, "jane@acme.test")
			if tt.identity != nil {
				f.provider.identity = tt.identity(nonce)
			}
			f.provider.err = tt.err

			resp := f.callback(state)
			require.Equal(t, tt.status, resp.Code, resp.Body.String())
			if tt.message != "" {
				var env shelferr.Envelope
				require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
				assert.Equal(t, tt.message, env.Error.Message)
			}

			var count int64
			require.NoError(t, f.db.Model(&models.User{}).Where("email = ?", "jane@acme.test").Count(&count).Error)
			assert.Equal(t, int64(0), count)
		})
	}
}

func TestCallbackInvalidState(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.callback("tampered").Code)
}

func TestBoolClaim(t *testing.T) {
	assert.True(t, boolClaim(true))
	assert.True(t, boolClaim("true"))
	assert.False(t, boolClaim(false))
	assert.False(t, boolClaim("false"))
	assert.False(t, boolClaim(nil))
	assert.False(t, boolClaim(1.0))
}
