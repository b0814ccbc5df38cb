package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskboard/internal/models"
	"taskboard/internal/render"
)

func membersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "List the project's team",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.openBoard(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer b.Close()
			render.Members(cmd.OutOrStdout(), b.Project(), b.Members())
			return nil
		},
	}

	var username string
	add := &cobra.Command{
		Use:   "add <user-id>",
		Short: "Put a user on the project's team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			b, err := a.openBoard(ctx, cmd)
			if err != nil {
				return err
			}
			defer b.Close()
			_, err = b.AddMember(ctx, models.AddMemberRequest{UserID: userID, Username: username})
			return err
		},
	}
	add.Flags().StringVar(&username, "username", "", "Display name of the user")

	remove := &cobra.Command{
		Use:   "remove <user-id>",
		Short: "Take a user off the project's team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			b, err := a.openBoard(ctx, cmd)
			if err != nil {
				return err
			}
			defer b.Close()
			return b.RemoveMember(ctx, userID)
		},
	}

	cmd.AddCommand(add, remove)
	return cmd
}

func parseUserID(raw string) (int64, error) {
	id, err := parseTaskID(raw)
	if err != nil {
		return 0, &models.ValidationError{Field: "user_id", Message: fmt.Sprintf("invalid user id %q", raw)}
	}
	return id, nil
}
