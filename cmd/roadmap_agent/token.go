package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/skill-roadmap/internal/config"
	"github.com/jonathan/skill-roadmap/internal/server"
)

func newTokenCmd() *cobra.Command {
	var userIDFlag string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		Long:  "Signs a JWT with JWT_SECRET for the given user ID, or for a new random user. Intended for local development.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runToken(cmd, userIDFlag)
		},
	}
	cmd.Flags().StringVarP(&userIDFlag, "user-id", "u", "", "User ID (default: random)")
	return cmd
}

func runToken(cmd *cobra.Command, userIDFlag string) error {
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	userID := uuid.New()
	if userIDFlag != "" {
		userID, err = uuid.Parse(userIDFlag)
		if err != nil {
			return fmt.Errorf("invalid user-id: %w", err)
		}
	}

	token, err := server.NewJWTService(jwtConfig).GenerateToken(userID)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "user: %s\n", userID)
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
