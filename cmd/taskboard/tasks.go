package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"taskboard/internal/models"
	"taskboard/internal/render"
)

// taskFlags holds the card fields shared by create and edit.
type taskFlags struct {
	title       string
	description string
	priority    string
	status      string
	assignee    int64
	due         string
	dueTime     string
	estimate    float64
}

func (f *taskFlags) register(cmd *cobra.Command, withStatus bool) {
	flags := cmd.Flags()
	flags.StringVar(&f.title, "title", "", "Task title")
	flags.StringVar(&f.description, "description", "", "Task description")
	flags.StringVar(&f.priority, "priority", "", "Priority (low, medium, high)")
	flags.Int64Var(&f.assignee, "assignee", 0, "Assigned user id")
	flags.StringVar(&f.due, "due", "", "Due date (YYYY-MM-DD)")
	flags.StringVar(&f.dueTime, "due-time", "", "Due time (HH:MM), needs --due")
	flags.Float64Var(&f.estimate, "estimate", 0, "Estimated hours")
	if withStatus {
		flags.StringVar(&f.status, "status", "", "Lane (to_do, in_progress, approval, completed)")
	}
}

func (f *taskFlags) dueDate() (*time.Time, error) {
	if f.due == "" {
		if f.dueTime != "" {
			return nil, &models.ValidationError{Field: "due_date", Message: "--due-time needs --due"}
		}
		return nil, nil
	}
	due, err := models.CombineDueDate(f.due, f.dueTime, time.Local)
	if err != nil {
		return nil, err
	}
	return &due, nil
}

func createCmd(a *app) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a task to the to_do lane",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := a.openBoard(ctx, cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			req := models.CreateTaskRequest{
				ProjectID:   a.projectID,
				Title:       f.title,
				Description: f.description,
				Priority:    models.Priority(f.priority),
			}
			if req.DueDate, err = f.dueDate(); err != nil {
				return err
			}
			if cmd.Flags().Changed("assignee") {
				req.AssignedTo = &f.assignee
			}
			if cmd.Flags().Changed("estimate") {
				req.EstimatedHours = &f.estimate
			}

			task, err := b.CreateTask(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Card(task))
			return nil
		},
	}
	f.register(cmd, false)
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func editCmd(a *app) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "edit <task-id>",
		Short: "Change the fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseTaskID(args[0])
			if err != nil {
				return err
			}

			var req models.UpdateTaskRequest
			changed := cmd.Flags().Changed
			if changed("title") {
				req.Title = &f.title
			}
			if changed("description") {
				req.Description = &f.description
			}
			if changed("priority") {
				p := models.Priority(f.priority)
				req.Priority = &p
			}
			if changed("status") {
				s := models.Status(f.status)
				req.Status = &s
			}
			if changed("assignee") {
				req.AssignedTo = &f.assignee
			}
			if changed("estimate") {
				req.EstimatedHours = &f.estimate
			}
			if req.DueDate, err = f.dueDate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			b, err := a.openBoard(ctx, cmd)
			if err != nil {
				return err
			}
			defer b.Close()

			task, err := b.EditTask(ctx, taskID, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Card(task))
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}

func deleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task that has no logged hours",
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
			return b.DeleteTask(ctx, taskID)
		},
	}
}
