package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"taskboard/internal/auth"
	"taskboard/internal/models"
)

func tokenCmd(a *app) *cobra.Command {
	var (
		userID   int64
		username string
		role     string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with server.jwt_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor := models.Actor{ID: userID, Username: username, Role: models.Role(role)}
			if !actor.Role.IsValid() {
				return fmt.Errorf("unknown role %q (admin, project_manager, team_member, sales_finance)", role)
			}
			tok, err := auth.Issue([]byte(a.cfg.Server.JWTSecret), actor, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user-id", 0, "User id")
	cmd.Flags().StringVar(&username, "username", "", "Display name")
	cmd.Flags().StringVar(&role, "role", string(models.RoleTeamMember), "Role")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}
