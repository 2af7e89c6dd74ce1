package main

import (
	"fmt"

	"github.com/mikepea/shelf/pkg/shelf/models"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, db, err := bootstrap()
			if err != nil {
				return err
			}
			if err := models.AutoMigrate(db); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			logger.Info().Msg("database migrations completed")
			return nil
		},
	}
}
