package main

import (
	"fmt"
	"time"

	"github.com/equifund/backend/internal/auth"
	"github.com/equifund/backend/internal/config"
	"github.com/equifund/backend/internal/rbac"
	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "token", Short: "Manage API access tokens"}

	var (
		role string
		ttl  time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue <subject>",
		Short: "Issue a signed API token for an operator or admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if ttl <= 0 {
				ttl = cfg.JWTExpiration
			}
			token, err := auth.GenerateJWT(cfg.JWTSecret, args[0], role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().StringVar(&role, "role", rbac.RoleOperator, "operator or admin")
	issue.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to JWT_EXPIRATION")

	cmd.AddCommand(issue)
	return cmd
}
