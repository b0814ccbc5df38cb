// Package main provides the taskboard binary: the REST backend (serve) and a
// terminal board that drives the same engine the web console uses.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskboard/internal/board"
	"taskboard/internal/client"
	"taskboard/internal/config"
	"taskboard/internal/models"
	"taskboard/internal/render"
)

const version = "1.0.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v          *viper.Viper
	cfg        *config.Config
	logger     *slog.Logger
	configPath string
	logLevel   string
	projectID  int64
}

func rootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "taskboard",
		Short:         "Per-project Kanban board with role-gated transitions and an hour ledger",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML, default ./taskboard.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.Int64VarP(&a.projectID, "project", "p", 0, "Project id")
	flags.String("server-url", "", "Backend base URL")
	flags.String("token", "", "Bearer token")
	flags.Bool("gate-reopen", false, "Also gate moves out of completed")
	_ = a.v.BindPFlag("client.base_url", flags.Lookup("server-url"))
	_ = a.v.BindPFlag("client.token", flags.Lookup("token"))
	_ = a.v.BindPFlag("board.gate_reopen", flags.Lookup("gate-reopen"))

	cmd.AddCommand(
		serveCmd(a),
		tokenCmd(a),
		boardCmd(a),
		moveCmd(a),
		watchCmd(a),
		createCmd(a),
		editCmd(a),
		deleteCmd(a),
		logHoursCmd(a),
		hoursCmd(a),
		membersCmd(a),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	level := a.logLevel
	if cmd.Name() == "serve" && !cmd.Flags().Changed("log-level") {
		level = "info"
	}
	a.logger = newLogger(cmd.ErrOrStderr(), level)
	slog.SetDefault(a.logger)

	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// printer writes notices as they arrive; transitions resolve on other goroutines.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printer) Notify(n board.Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	render.Notice(p.w, n)
}

func (a *app) client() (*client.Client, error) {
	if err := a.cfg.Client.Validate(); err != nil {
		return nil, err
	}
	return client.New(a.cfg.Client.BaseURL, a.cfg.Client.Token, a.cfg.Client.Timeout, a.logger), nil
}

// openBoard connects to the backend as the token's user and loads the project.
func (a *app) openBoard(ctx context.Context, cmd *cobra.Command) (*board.Board, error) {
	if a.projectID <= 0 {
		return nil, fmt.Errorf("--project is required")
	}
	cl, err := a.client()
	if err != nil {
		return nil, err
	}
	actor, err := cl.Actor()
	if err != nil {
		return nil, err
	}

	b, err := board.New(board.Options{
		ProjectID: a.projectID,
		Actor:     actor,
		Remote:    cl,
		Notifier:  &printer{w: cmd.OutOrStdout()},
		Authority: board.Authority{GateReopen: a.cfg.Board.GateReopen},
		Logger:    a.logger,
	})
	if err != nil {
		return nil, err
	}
	if err := b.Reload(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func parseTaskID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, &models.ValidationError{Field: "task", Message: fmt.Sprintf("invalid task id %q", raw)}
	}
	return id, nil
}
