package workspace

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/shelf/pkg/shelf/auth"
	"github.com/mikepea/shelf/pkg/shelf/models"
	"github.com/mikepea/shelf/pkg/shelf/shelferr"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	router *gin.Engine
	owner  models.User
	base   models.User
	org    models.Organization
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(db))

	owner := models.User{Email: "owner@acme.test", FirstName: "Olive", LastName: "Owner"}
	require.NoError(t, db.Create(&owner).Error)
	base := models.User{Email: "base@acme.test"}
	require.NoError(t, db.Create(&base).Error)
	org := models.Organization{Name: "Acme", Type: models.OrganizationTypeTeam, OwnerID: owner.ID}
	require.NoError(t, db.Create(&org).Error)
	require.NoError(t, db.Create(&models.UserOrganization{OrganizationID: org.ID, UserID: base.ID, Role: models.OrganizationRoleBase}).Error)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(db, auth.NewGate(db), zerolog.Nop()).RegisterRoutes(r.Group("/api/workspace"))

	return fixture{db: db, router: r, owner: owner, base: base, org: org}
}

func (f fixture) do(t *testing.T, req *http.Request, u models.User) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.GenerateToken(u.ID, u.Email, string(u.Role))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func (f fixture) deleteMember(t *testing.T, memberID string, as models.User) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"teamMemberId": {memberID}}
	req, _ := http.NewRequest(http.MethodPost, "/api/workspace/"+f.org.ID+"/team/delete", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(t, req, as)
}

func TestListTeam(t *testing.T) {
	f := newFixture(t)
	member := models.TeamMember{OrganizationID: f.org.ID, Name: "Bob"}
	require.NoError(t, f.db.Create(&member).Error)
	asset := models.Asset{OrganizationID: f.org.ID, UserID: f.owner.ID, Title: "Drill"}
	require.NoError(t, f.db.Create(&asset).Error)
	require.NoError(t, f.db.Create(&models.Custody{TeamMemberID: member.ID, AssetID: asset.ID}).Error)

	req, _ := http.NewRequest(http.MethodGet, "/api/workspace/"+f.org.ID+"/team", nil)
	resp := f.do(t, req, f.base)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body TeamResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "Olive Owner", body.Owner.Name)
	require.Len(t, body.TeamMembers, 1)
	assert.Equal(t, 1, body.TeamMembers[0].CustodyCount)
}

func TestListTeamOutsider(t *testing.T) {
	f := newFixture(t)
	outsider := models.User{Email: "out@else.test"}
	require.NoError(t, f.db.Create(&outsider).Error)

	req, _ := http.NewRequest(http.MethodGet, "/api/workspace/"+f.org.ID+"/team", nil)
	assert.Equal(t, http.StatusForbidden, f.do(t, req, outsider).Code)
}

func TestCreateTeamMember(t *testing.T) {
	f := newFixture(t)

	body, _ := json.Marshal(CreateTeamMemberRequest{Name: " Carol "})
	req, _ := http.NewRequest(http.MethodPost, "/api/workspace/"+f.org.ID+"/team", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := f.do(t, req, f.owner)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created TeamMemberResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "Carol", created.Name)

	req, _ = http.NewRequest(http.MethodPost, "/api/workspace/"+f.org.ID+"/team", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusForbidden, f.do(t, req, f.base).Code)
}

func TestCreateTeamMemberMissingWorkspace(t *testing.T) {
	f := newFixture(t)
	admin := models.User{Email: "admin@shelf.local", Role: models.RoleAdmin}
	require.NoError(t, f.db.Create(&admin).Error)

	body, _ := json.Marshal(CreateTeamMemberRequest{Name: "Dave"})
	req, _ := http.NewRequest(http.MethodPost, "/api/workspace/does-not-exist/team", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := f.do(t, req, admin)
	assert.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "Workspace not found")

	var count int64
	require.NoError(t, f.db.Model(&models.TeamMember{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteTeamMember(t *testing.T) {
	f := newFixture(t)
	member := models.TeamMember{OrganizationID: f.org.ID, Name: "Bob"}
	require.NoError(t, f.db.Create(&member).Error)

	assert.Equal(t, http.StatusForbidden, f.deleteMember(t, member.ID, f.base).Code)

	resp := f.deleteMember(t, member.ID, f.owner)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var count int64
	require.NoError(t, f.db.Model(&models.TeamMember{}).Where("id = ?", member.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	require.NoError(t, f.db.Unscoped().Model(&models.TeamMember{}).Where("id = ?", member.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	assert.Equal(t, http.StatusNotFound, f.deleteMember(t, member.ID, f.owner).Code)
}

func TestDeleteTeamMemberWithCustody(t *testing.T) {
	f := newFixture(t)
	member := models.TeamMember{OrganizationID: f.org.ID, Name: "Bob"}
	require.NoError(t, f.db.Create(&member).Error)
	for _, title := range []string{"Drill", "Ladder"} {
		asset := models.Asset{OrganizationID: f.org.ID, UserID: f.owner.ID, Title: title}
		require.NoError(t, f.db.Create(&asset).Error)
		require.NoError(t, f.db.Create(&models.Custody{TeamMemberID: member.ID, AssetID: asset.ID}).Error)
	}

	resp := f.deleteMember(t, member.ID, f.owner)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var env shelferr.Envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	assert.Equal(t, "Unable to delete team member", env.Error.Title)
	assert.Contains(t, env.Error.Message, "custody over 2 assets")

	var count int64
	require.NoError(t, f.db.Model(&models.TeamMember{}).Where("id = ?", member.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
