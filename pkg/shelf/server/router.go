// Package server wires every feature handler into the HTTP router.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mikepea/shelf/pkg/shelf/admindashboard"
	"github.com/mikepea/shelf/pkg/shelf/assets"
	"github.com/mikepea/shelf/pkg/shelf/auth"
	"github.com/mikepea/shelf/pkg/shelf/bookings"
	"github.com/mikepea/shelf/pkg/shelf/config"
	"github.com/mikepea/shelf/pkg/shelf/logging"
	"github.com/mikepea/shelf/pkg/shelf/metrics"
	"github.com/mikepea/shelf/pkg/shelf/organizations"
	"github.com/mikepea/shelf/pkg/shelf/qr"
	"github.com/mikepea/shelf/pkg/shelf/sso"
	"github.com/mikepea/shelf/pkg/shelf/workspace"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Options are the dependencies of the router
type Options struct {
	DB     *gorm.DB
	Config config.Config
	Logger zerolog.Logger
	// Gatherer serves /metrics. The default registry is used when nil.
	Gatherer prometheus.Gatherer
	// SSOProvider enables the SSO login routes when set.
	SSOProvider sso.Provider
}

// NewRouter builds the gin engine with every route registered
func NewRouter(opts Options) *gin.Engine {
	db := opts.DB
	logger := opts.Logger

	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger(logger), metrics.Middleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler(opts.Gatherer))

	gate := auth.NewGate(db)
	orgs := organizations.NewService(db)
	qrSvc := qr.NewService(db)

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "shelf"})
		})

		auth.NewHandler(db, logger).RegisterRoutes(api.Group("/auth"))

		admindashboard.NewHandler(db, gate, orgs, qrSvc, opts.Config.MaxOrphanBatch, logger).
			RegisterRoutes(api.Group("/admin-dashboard"))

		assets.NewHandler(db, gate, logger).RegisterRoutes(api.Group("/admin"))

		workspace.NewHandler(db, gate, logger).RegisterRoutes(api.Group("/workspace"))

		bookings.NewHandler(db, gate, logger).RegisterRoutes(api.Group("/bookings"))

		if opts.SSOProvider != nil {
			stateSecret := opts.Config.JWTSecret
			if stateSecret == "" {
				// State only has to survive one login round trip on this process
				stateSecret = uuid.NewString()
			}
			sso.NewHandler(db, orgs, opts.SSOProvider, stateSecret, logger).RegisterRoutes(api.Group("/sso"))
		}
	}

	// QR scans are public
	qr.NewHandler(qrSvc, logger).RegisterRoutes(r)

	return r
}
