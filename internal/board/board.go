// Package board implements the per-project task board: lane projection,
// transition authority, optimistic drag-drop reconciliation and the hour ledger.
//
// A Board is a state container independent of any rendering layer. Callers
// read Lanes after each change (or subscribe with Options.OnChange) and render
// them however they like.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"taskboard/internal/metrics"
	"taskboard/internal/models"
)

// ErrClosed is returned once the board has been closed.
var ErrClosed = errors.New("board closed")

// Options configures a Board.
type Options struct {
	ProjectID int64
	Actor     models.Actor
	Remote    Remote
	Notifier  Notifier
	Authority Authority
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	// Clock is read at submit time for due-date checks.
	Clock func() time.Time
	// OnChange is called with a snapshot of the lanes after every mutation.
	OnChange func(Lanes)
}

// Board owns the in-memory task collection of one project for a session.
type Board struct {
	projectID int64
	actor     models.Actor
	remote    Remote
	notifier  Notifier
	authority Authority
	logger    *slog.Logger
	metrics   *metrics.Metrics
	clock     func() time.Time
	onChange  func(Lanes)

	mu       sync.Mutex
	project  models.Project
	tasks    []models.Task
	lanes    Lanes
	inFlight map[int64]*attempt
	logging  map[int64]struct{}
	results  map[int64]TransitionResult
	closed   bool
	wg       sync.WaitGroup
}

// New builds an empty board. Call Reload to pull the remote state.
func New(opts Options) (*Board, error) {
	if opts.Remote == nil {
		return nil, fmt.Errorf("board: remote is required")
	}
	if opts.ProjectID <= 0 {
		return nil, fmt.Errorf("board: invalid project id %d", opts.ProjectID)
	}
	if opts.Notifier == nil {
		opts.Notifier = discardNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	lanes, _ := ProjectToLanes(nil)
	return &Board{
		projectID: opts.ProjectID,
		actor:     opts.Actor,
		remote:    opts.Remote,
		notifier:  opts.Notifier,
		authority: opts.Authority,
		logger:    opts.Logger.With(slog.Int64("project_id", opts.ProjectID)),
		metrics:   opts.Metrics,
		clock:     opts.Clock,
		onChange:  opts.OnChange,
		lanes:     lanes,
		inFlight:  make(map[int64]*attempt),
		logging:   make(map[int64]struct{}),
		results:   make(map[int64]TransitionResult),
	}, nil
}

// Reload replaces the board with a fresh fetch of the project, its team and its tasks.
// Tasks with a transition in flight keep their optimistic status.
func (b *Board) Reload(ctx context.Context) error {
	var (
		project models.Project
		members []models.ProjectMember
		tasks   []models.Task
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := b.remote.FetchProject(gctx, b.projectID)
		if err != nil {
			return fmt.Errorf("fetch project: %w", err)
		}
		project = p
		return nil
	})
	g.Go(func() error {
		ms, err := b.remote.FetchProjectMembers(gctx, b.projectID)
		if err != nil {
			return fmt.Errorf("fetch members: %w", err)
		}
		members = ms
		return nil
	})
	g.Go(func() error {
		ts, err := b.remote.FetchTasksByProject(gctx, b.projectID)
		if err != nil {
			return fmt.Errorf("fetch tasks: %w", err)
		}
		tasks = ts
		return nil
	})
	if err := g.Wait(); err != nil {
		b.logger.Error("failed to load project and tasks", slog.String("error", err.Error()))
		b.notify(Notice{Level: LevelError, Category: models.Categorize(err), Message: "Failed to load project data"})
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	for i := range tasks {
		if a, ok := b.inFlight[tasks[i].ID]; ok && a.optimistic {
			tasks[i].Status = a.to
		}
	}
	lanes, err := ProjectToLanes(tasks)
	if err != nil {
		b.mu.Unlock()
		b.logger.Error("refusing inconsistent task list", slog.String("error", err.Error()))
		b.notify(Notice{Level: LevelError, Category: models.CategoryIntegrity, Message: err.Error()})
		return err
	}
	project.Members = members
	b.project = project
	b.tasks = tasks
	b.lanes = lanes
	snapshot := b.lanes.clone()
	b.mu.Unlock()

	b.changed(snapshot)
	return nil
}

// Lanes returns a snapshot of the projected board.
func (b *Board) Lanes() Lanes {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lanes.clone()
}

// Project returns the project the board was loaded for.
func (b *Board) Project() models.Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.project
}

// Actor returns the acting user.
func (b *Board) Actor() models.Actor {
	return b.actor
}

// Task returns the cached task with id.
func (b *Board) Task(id int64) (models.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexOf(id)
	if i < 0 {
		return models.Task{}, false
	}
	return b.tasks[i], true
}

// Can reports whether the board's actor holds capability c.
func (b *Board) Can(c Capability) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.authority.Can(b.actor, b.project, c)
}

// InFlight reports whether a transition, edit or delete of taskID awaits the backend.
func (b *Board) InFlight(taskID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.inFlight[taskID]
	return ok
}

// LastResult returns the latest transition result recorded for taskID.
func (b *Board) LastResult(taskID int64) (TransitionResult, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.results[taskID]
	return r, ok
}

// Close detaches the board. Requests still in flight complete, but their
// results are no longer applied and no notices are emitted.
func (b *Board) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Wait blocks until every background transition has resolved.
func (b *Board) Wait() {
	b.wg.Wait()
}

// hold reserves taskID for a non-optimistic write. It fails while another
// write for the task is in flight. Must be called with mu held.
func (b *Board) hold(taskID int64, status models.Status) (*attempt, bool) {
	if _, busy := b.inFlight[taskID]; busy {
		return nil, false
	}
	a := &attempt{id: uuid.NewString(), taskID: taskID, from: status, to: status}
	b.inFlight[taskID] = a
	return a, true
}

// indexOf must be called with mu held.
func (b *Board) indexOf(id int64) int {
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// reproject must be called with mu held. Statuses written locally are always
// valid, so a failure here means the backend sent bad data and the previous
// projection is kept.
func (b *Board) reproject() Lanes {
	lanes, err := ProjectToLanes(b.tasks)
	if err != nil {
		b.logger.Error("projection failed", slog.String("error", err.Error()))
		return b.lanes.clone()
	}
	b.lanes = lanes
	return b.lanes.clone()
}

func (b *Board) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Board) notify(n Notice) {
	if b.isClosed() {
		return
	}
	b.notifier.Notify(n)
}

func (b *Board) changed(l Lanes) {
	if b.onChange != nil && !b.isClosed() {
		b.onChange(l)
	}
}
