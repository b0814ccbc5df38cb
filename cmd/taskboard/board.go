package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"taskboard/internal/board"
	"taskboard/internal/models"
	"taskboard/internal/render"
)

func boardCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the lanes of a project, or list projects when --project is not set",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.projectID <= 0 {
				return a.listProjects(cmd)
			}
			b, err := a.openBoard(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer b.Close()
			return show(cmd.OutOrStdout(), b, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text, yaml)")
	return cmd
}

func (a *app) listProjects(cmd *cobra.Command) error {
	cl, err := a.client()
	if err != nil {
		return err
	}
	projects, err := cl.ListProjects(cmd.Context())
	if err != nil {
		return err
	}
	render.Projects(cmd.OutOrStdout(), projects)
	return nil
}

func show(w io.Writer, b *board.Board, output string) error {
	snap := render.NewSnapshot(b.Project(), b.Actor(), b.Lanes())
	switch output {
	case "yaml":
		return render.YAML(w, snap)
	case "text", "":
		render.Text(w, snap)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func moveCmd(a *app) *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "move <task-id> <lane>",
		Short: "Drag a task into another lane (to_do, in_progress, approval, completed)",
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

			src, ok := b.Lanes().Find(taskID)
			if !ok {
				return fmt.Errorf("task %d: %w", taskID, models.ErrNotFound)
			}
			dest := board.Position{Lane: models.Status(args[1]), Index: index}
			res, err := b.OnDrop(ctx, board.Drop{TaskID: taskID, Source: src, Dest: &dest}).Wait(ctx)
			if err != nil {
				return err
			}
			a.logger.Debug("move resolved", slog.String("attempt_id", res.AttemptID), slog.String("outcome", res.Outcome.String()))

			switch res.Outcome {
			case board.OutcomeApplied, board.OutcomeNoop:
				return nil
			case board.OutcomeDenied, board.OutcomeRolledBack:
				if res.Err != nil {
					return res.Err
				}
				return fmt.Errorf("move %s", res.Outcome)
			default:
				return fmt.Errorf("move %s", res.Outcome)
			}
		},
	}
	cmd.Flags().IntVar(&index, "index", 0, "Position inside the destination lane")
	return cmd
}

func watchCmd(a *app) *cobra.Command {
	var (
		schedule string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload and print the board on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			b, err := a.openBoard(ctx, cmd)
			if err != nil {
				return err
			}
			defer b.Close()
			out := cmd.OutOrStdout()
			if err := show(out, b, output); err != nil {
				return err
			}

			c := cron.New()
			_, err = c.AddFunc(schedule, func() {
				if err := b.Reload(ctx); err != nil {
					a.logger.Warn("reload failed", slog.String("error", err.Error()))
					return
				}
				fmt.Fprintln(out)
				if err := show(out, b, output); err != nil {
					a.logger.Error("render failed", slog.String("error", err.Error()))
				}
			})
			if err != nil {
				return fmt.Errorf("schedule %q: %w", schedule, err)
			}
			c.Start()
			<-ctx.Done()
			<-c.Stop().Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&schedule, "every", "@every 30s", "Cron schedule for reloads")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text, yaml)")
	return cmd
}
