package admindashboard

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/shelf/pkg/shelf/auth"
	"github.com/mikepea/shelf/pkg/shelf/models"
	"github.com/mikepea/shelf/pkg/shelf/organizations"
	"github.com/mikepea/shelf/pkg/shelf/qr"
	"github.com/mikepea/shelf/pkg/shelf/shelferr"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(f.db, auth.NewGate(f.db), organizations.NewService(f.db), qr.NewService(f.db), 1000, zerolog.Nop())
	h.RegisterRoutes(r.Group("/api/admin-dashboard"))
	return r
}

func tokenFor(t *testing.T, u models.User) string {
	t.Helper()
	token, err := auth.GenerateToken(u.ID, u.Email, string(u.Role))
	require.NoError(t, err)
	return token
}

func do(r *gin.Engine, req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func postForm(r *gin.Engine, path, token string, form url.Values) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(r, req, token)
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) shelferr.Payload {
	t.Helper()
	var env shelferr.Envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env.Error
}

func TestGetOrganizationHandler(t *testing.T) {
	f := newFixture(t)
	r := setupTestRouter(f)

	req, _ := http.NewRequest(http.MethodGet, "/api/admin-dashboard/org/"+f.org.ID, nil)
	resp := do(r, req, tokenFor(t, f.admin))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		Organization models.Organization `json:"organization"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, f.org.ID, body.Organization.ID)
	assert.Equal(t, f.member.Email, body.Organization.Owner.Email)
}

func TestGetOrganizationHandlerErrors(t *testing.T) {
	f := newFixture(t)
	r := setupTestRouter(f)

	req, _ := http.NewRequest(http.MethodGet, "/api/admin-dashboard/org/missing", nil)
	resp := do(r, req, tokenFor(t, f.admin))
	require.Equal(t, http.StatusNotFound, resp.Code)
	payload := decodeError(t, resp)
	assert.Equal(t, "Organization not found", payload.Title)
	assert.Equal(t, "Admin dashboard", payload.Label)
	assert.Equal(t, http.StatusNotFound, payload.Status)

	req, _ = http.NewRequest(http.MethodGet, "/api/admin-dashboard/org/"+f.org.ID, nil)
	resp = do(r, req, tokenFor(t, f.member))
	assert.Equal(t, http.StatusForbidden, resp.Code)

	req, _ = http.NewRequest(http.MethodGet, "/api/admin-dashboard/org/"+f.org.ID, nil)
	resp = do(r, req, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestPerformActionHandler(t *testing.T) {
	f := newFixture(t)
	r := setupTestRouter(f)
	token := tokenFor(t, f.admin)
	path := "/api/admin-dashboard/org/" + f.org.ID

	resp := postForm(r, path, token, url.Values{"intent": {"toggleSso"}, "enabledSso": {"on"}})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.JSONEq(t, `{"message":"SSO toggled"}`, resp.Body.String())

	resp = postForm(r, path, token, url.Values{"intent": {"nope"}})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp)
	assert.Equal(t, "Admin dashboard", payload.Label)
	assert.Equal(t, f.admin.ID, payload.AdditionalData["userId"])

	resp = postForm(r, path, token, url.Values{"intent": {"updateSsoDetails"}, "domain": {"not a domain"}, "adminGroupId": {"a"}, "selfServiceGroupId": {"s"}})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Please enter a valid domain name", decodeError(t, resp).Message)
}

func TestPerformActionMultipart(t *testing.T) {
	f := newFixture(t)
	r := setupTestRouter(f)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("intent", "createOrphans"))
	require.NoError(t, w.WriteField("amount", "3"))
	require.NoError(t, w.WriteField("userId", f.member.ID))
	require.NoError(t, w.Close())

	req, _ := http.NewRequest(http.MethodPost, "/api/admin-dashboard/org/"+f.org.ID, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp := do(r, req, tokenFor(t, f.admin))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.JSONEq(t, `{"message":"Generated Orphaned QR codes"}`, resp.Body.String())
	assert.Equal(t, int64(3), f.qrCount(t))
}

func TestListQrCodesHandler(t *testing.T) {
	f := newFixture(t)
	r := setupTestRouter(f)
	token := tokenFor(t, f.admin)

	asset := models.Asset{OrganizationID: f.org.ID, UserID: f.member.ID, Title: "Drill"}
	require.NoError(t, f.db.Create(&asset).Error)
	require.NoError(t, f.db.Create(&models.QrCode{OrganizationID: f.org.ID, UserID: f.member.ID, AssetID: &asset.ID}).Error)
	require.NoError(t, f.db.Create(&models.QrCode{OrganizationID: f.org.ID, UserID: f.member.ID}).Error)

	tests := []struct {
		query string
		code  int
		total int
	}{
		{"", http.StatusOK, 2},
		{"?orphaned=true", http.StatusOK, 1},
		{"?orphaned=false", http.StatusOK, 1},
		{"?orphaned=maybe", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, "/api/admin-dashboard/org/"+f.org.ID+"/qr-codes"+tt.query, nil)
		resp := do(r, req, token)
		require.Equal(t, tt.code, resp.Code, tt.query)
		if tt.code != http.StatusOK {
			continue
		}
		var body struct {
			Total int `json:"total"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, tt.total, body.Total, tt.query)
	}

	req, _ := http.NewRequest(http.MethodGet, "/api/admin-dashboard/org/missing/qr-codes", nil)
	assert.Equal(t, http.StatusNotFound, do(r, req, token).Code)
}

func TestListOrganizationsAndUsers(t *testing.T) {
	f := newFixture(t)
	r := setupTestRouter(f)
	token := tokenFor(t, f.admin)

	req, _ := http.NewRequest(http.MethodGet, "/api/admin-dashboard/organizations", nil)
	resp := do(r, req, token)
	require.Equal(t, http.StatusOK, resp.Code)
	var orgs []organizations.Summary
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &orgs))
	require.Len(t, orgs, 1)
	assert.Equal(t, f.member.Email, orgs[0].OwnerEmail)

	req, _ = http.NewRequest(http.MethodGet, "/api/admin-dashboard/users?q=acme", nil)
	resp = do(r, req, token)
	require.Equal(t, http.StatusOK, resp.Code)
	var users []UserResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, f.member.Email, users[0].Email)

	req, _ = http.NewRequest(http.MethodGet, "/api/admin-dashboard/users", nil)
	assert.Equal(t, http.StatusForbidden, do(r, req, tokenFor(t, f.member)).Code)
}
