package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskboard/internal/board"
	"taskboard/internal/models"
	"taskboard/internal/render"
)

func logHoursCmd(a *app) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "log-hours <task-id> <hours>",
		Short: "Log hours worked on a task assigned to you",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			b, err := a.openBoard(ctx, cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			form := board.HourForm{TaskID: taskID, Hours: args[1], Description: description}
			res, err := form.Submit(ctx, b)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total: %gh\n", res.Task.TotalHoursWorked)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "What the time was spent on")
	return cmd
}

func hoursCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hours <task-id>",
		Short: "Show the hour ledger of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			b, err := a.openBoard(ctx, cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			entries, err := b.HourEntries(ctx, taskID)
			if err != nil {
				return err
			}
			task, ok := b.Task(taskID)
			if !ok {
				return fmt.Errorf("task %d: %w", taskID, models.ErrNotFound)
			}
			render.Hours(cmd.OutOrStdout(), task, entries)
			return nil
		},
	}
}
