package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))

	r := gin.New()
	r.Use(Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", Handler(reg))

	before := testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/items/:id", "200"))

	req, _ := http.NewRequest(http.MethodGet, "/items/abc", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	after := testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/items/:id", "200"))
	assert.Equal(t, before+1, after)

	AdminActions.WithLabelValues("toggleSso", OutcomeSuccess).Inc()

	req, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.True(t, strings.Contains(body, "shelf_admin_actions_total"))
	assert.True(t, strings.Contains(body, `route="/items/:id"`))
}
