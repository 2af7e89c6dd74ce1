package main

import (
	"fmt"
	"os"

	"github.com/mikepea/shelf/pkg/shelf/config"
	"github.com/mikepea/shelf/pkg/shelf/database"
	"github.com/mikepea/shelf/pkg/shelf/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	cmd := &cobra.Command{
		Use:           "shelf-server",
		Short:         "Shelf asset management server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	cmd.AddCommand(serve)
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newCreateAdminCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// bootstrap loads the configuration and opens the database shared by every subcommand.
func bootstrap() (config.Config, zerolog.Logger, *gorm.DB, error) {
	cfg := config.Load()
	logger := logging.New(cfg.IsProduction(), cfg.LogLevel)

	if err := database.Connect(cfg.DBPath, logger.With().Str("component", "database").Logger()); err != nil {
		return cfg, logger, nil, fmt.Errorf("connect to database %s: %w", cfg.DBPath, err)
	}
	return cfg, logger, database.GetDB(), nil
}
