package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/shelf/pkg/shelf/auth"
	"github.com/mikepea/shelf/pkg/shelf/metrics"
	"github.com/mikepea/shelf/pkg/shelf/models"
	"github.com/mikepea/shelf/pkg/shelf/server"
	"github.com/mikepea/shelf/pkg/shelf/sso"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, db, err := bootstrap()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				gin.SetMode(gin.ReleaseMode)
			}

			if cfg.JWTSecret == "" {
				if cfg.IsProduction() {
					return errors.New("JWT_SECRET must be set in production")
				}
				logger.Warn().Msg("JWT_SECRET not set, using the development secret")
			} else {
				auth.SetJWTSecret(cfg.JWTSecret)
			}

			if cfg.AutoMigrate {
				if err := models.AutoMigrate(db); err != nil {
					return fmt.Errorf("run migrations: %w", err)
				}
				logger.Info().Msg("database migrations completed")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			created, err := server.EnsureAdmin(ctx, db, cfg.AdminEmail, cfg.AdminPassword)
			if err != nil {
				return fmt.Errorf("ensure admin: %w", err)
			}
			if created {
				logger.Warn().Str("email", cfg.AdminEmail).Msg("created default admin user, change the password after first login")
			}

			if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
				return fmt.Errorf("register metrics: %w", err)
			}

			opts := server.Options{
				DB:       db,
				Config:   cfg,
				Logger:   logger,
				Gatherer: prometheus.DefaultGatherer,
			}
			if cfg.SSO.Enabled() {
				provider, err := sso.NewOIDCProvider(ctx, cfg.SSO, cfg.BaseURL)
				if err != nil {
					return fmt.Errorf("initialize SSO provider: %w", err)
				}
				opts.SSOProvider = provider
				logger.Info().Str("issuer", cfg.SSO.Issuer).Msg("SSO login enabled")
			}

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           server.NewRouter(opts),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", srv.Addr).Str("base_url", cfg.BaseURL).Msg("starting shelf server")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
