package main

import (
	"errors"
	"strings"

	"github.com/mikepea/shelf/pkg/shelf/server"
	"github.com/spf13/cobra"
)

func newCreateAdminCmd() *cobra.Command {
	var (
		email    string
		password string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}
			_, logger, db, err := bootstrap()
			if err != nil {
				return err
			}

			first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
			user, err := server.CreateAdmin(cmd.Context(), db, email, password, first, last)
			if err != nil {
				return err
			}
			logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("administrator created")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "administrator email")
	cmd.Flags().StringVar(&password, "password", "", "administrator password")
	cmd.Flags().StringVar(&name, "name", "Admin", "administrator display name")
	return cmd
}
