package board

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"taskboard/internal/models"
)

// Outcome tags the result of one transition attempt.
type Outcome int

const (
	// OutcomeNoop: dropped outside the lanes or back onto its origin.
	OutcomeNoop Outcome = iota
	// OutcomeDenied: rejected locally before any network call.
	OutcomeDenied
	// OutcomeBusy: another transition for the same task is in flight.
	OutcomeBusy
	// OutcomeApplied: the backend confirmed the optimistic change.
	OutcomeApplied
	// OutcomeRolledBack: the backend refused and the status was restored.
	OutcomeRolledBack
	// OutcomeDiscarded: resolved after the board was closed.
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoop:
		return "noop"
	case OutcomeDenied:
		return "denied"
	case OutcomeBusy:
		return "busy"
	case OutcomeApplied:
		return "applied"
	case OutcomeRolledBack:
		return "rolled_back"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Drop is a finished drag gesture. A nil Dest means the card was released
// outside every lane.
type Drop struct {
	TaskID int64
	Source Position
	Dest   *Position
}

// TransitionResult records how a drop resolved.
type TransitionResult struct {
	AttemptID string
	TaskID    int64
	From      models.Status
	To        models.Status
	Outcome   Outcome
	Category  models.Category
	Reason    string
	Err       error
}

// Pending resolves once the drop has been confirmed or rolled back.
type Pending struct {
	done   chan struct{}
	result TransitionResult
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func resolved(r TransitionResult) *Pending {
	p := newPending()
	p.resolve(r)
	return p
}

func (p *Pending) resolve(r TransitionResult) {
	p.result = r
	close(p.done)
}

// Done is closed when the result is available.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the drop resolves or ctx ends.
func (p *Pending) Wait(ctx context.Context) (TransitionResult, error) {
	select {
	case <-p.done:
		return p.result, nil
	case <-ctx.Done():
		return TransitionResult{}, ctx.Err()
	}
}

// attempt holds a task while a write for it awaits the backend. Only drops are
// optimistic; edits and deletes hold the task without rewriting its status.
type attempt struct {
	id         string
	taskID     int64
	from       models.Status
	to         models.Status
	optimistic bool
}

// OnDrop turns a drag gesture into a status transition.
//
// Authorization and the optimistic status rewrite happen before OnDrop
// returns; the backend call runs in the background and its outcome is
// delivered through the returned Pending. Denials and failures are reported to
// the Notifier, never panicked or returned as fatal errors.
func (b *Board) OnDrop(ctx context.Context, d Drop) *Pending {
	if d.Dest == nil || *d.Dest == d.Source {
		return b.record(TransitionResult{TaskID: d.TaskID, From: d.Source.Lane, To: d.Source.Lane, Outcome: OutcomeNoop})
	}
	to := d.Dest.Lane

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return resolved(TransitionResult{TaskID: d.TaskID, To: to, Outcome: OutcomeDiscarded, Err: ErrClosed})
	}
	idx := b.indexOf(d.TaskID)
	if idx < 0 {
		b.mu.Unlock()
		err := fmt.Errorf("task %d: %w", d.TaskID, models.ErrNotFound)
		b.notify(Notice{Level: LevelError, Category: models.CategoryNotFound, TaskID: d.TaskID, Message: "Task not found on this board"})
		return b.record(TransitionResult{TaskID: d.TaskID, To: to, Outcome: OutcomeDenied, Category: models.CategoryNotFound, Err: err})
	}
	if _, busy := b.inFlight[d.TaskID]; busy {
		from := b.tasks[idx].Status
		b.mu.Unlock()
		b.notify(Notice{Level: LevelInfo, TaskID: d.TaskID, Message: "Task is updating, try again in a moment"})
		// Busy is not recorded: the in-flight attempt owns the task's last result.
		b.metrics.ObserveTransition(OutcomeBusy.String())
		return resolved(TransitionResult{TaskID: d.TaskID, From: from, To: to, Outcome: OutcomeBusy})
	}

	task := b.tasks[idx]
	from := task.Status
	if d.Source.Lane != from {
		b.logger.Warn("drop source lane differs from board state",
			slog.Int64("task_id", d.TaskID), slog.String("source", string(d.Source.Lane)), slog.String("status", string(from)))
	}
	dec := b.authority.Authorize(b.actor, task, b.project, from, to)
	if !dec.Allowed {
		b.mu.Unlock()
		err := dec.Err()
		cat := models.Categorize(err)
		b.notify(Notice{Level: LevelError, Category: cat, TaskID: d.TaskID, Message: dec.Message})
		return b.record(TransitionResult{TaskID: d.TaskID, From: from, To: to, Outcome: OutcomeDenied, Category: cat, Reason: dec.Reason, Err: err})
	}
	if dec.Noop {
		// Reordering inside a lane: lane order is derived, nothing to persist.
		b.mu.Unlock()
		return b.record(TransitionResult{TaskID: d.TaskID, From: from, To: to, Outcome: OutcomeNoop})
	}

	a := &attempt{id: uuid.NewString(), taskID: d.TaskID, from: from, to: to, optimistic: true}
	b.tasks[idx].Status = to
	b.inFlight[d.TaskID] = a
	snapshot := b.reproject()
	b.wg.Add(1)
	b.mu.Unlock()

	b.logger.Info("transition started",
		slog.String("attempt_id", a.id), slog.Int64("task_id", a.taskID),
		slog.String("from", string(a.from)), slog.String("to", string(a.to)))
	b.changed(snapshot)

	p := newPending()
	go b.reconcile(context.WithoutCancel(ctx), a, p)
	return p
}

// reconcile sends the status update and confirms or rolls back the optimistic change.
func (b *Board) reconcile(ctx context.Context, a *attempt, p *Pending) {
	defer b.wg.Done()

	updated, err := b.sendStatus(ctx, a)
	res := TransitionResult{AttemptID: a.id, TaskID: a.taskID, From: a.from, To: a.to}

	b.mu.Lock()
	delete(b.inFlight, a.taskID)
	if b.closed {
		b.mu.Unlock()
		res.Outcome = OutcomeDiscarded
		res.Err = err
		b.logger.Debug("transition resolved after close", slog.String("attempt_id", a.id))
		p.resolve(res)
		return
	}

	idx := b.indexOf(a.taskID)
	if err == nil {
		if idx >= 0 && updated.ID == a.taskID {
			b.tasks[idx] = updated
		}
		res.Outcome = OutcomeApplied
	} else {
		// Only undo our own write: a reload may have replaced the task meanwhile.
		if idx >= 0 && b.tasks[idx].Status == a.to {
			b.tasks[idx].Status = a.from
		}
		res.Outcome = OutcomeRolledBack
		res.Category = models.Categorize(err)
		res.Err = err
	}
	b.results[a.taskID] = res
	snapshot := b.reproject()
	b.mu.Unlock()

	b.metrics.ObserveTransition(res.Outcome.String())
	b.changed(snapshot)
	if err != nil {
		b.logger.Warn("transition rolled back",
			slog.String("attempt_id", a.id), slog.Int64("task_id", a.taskID),
			slog.String("category", string(res.Category)), slog.String("error", err.Error()))
		b.notify(Notice{Level: LevelError, Category: res.Category, TaskID: a.taskID, Message: failureMessage("update task status", res.Category)})
	} else {
		b.logger.Info("transition applied", slog.String("attempt_id", a.id), slog.Int64("task_id", a.taskID))
		b.notify(Notice{Level: LevelSuccess, TaskID: a.taskID, Message: "Task status updated successfully"})
	}
	p.resolve(res)
}

// sendStatus turns a panicking Remote into a transport failure so nothing escapes the drop handler.
func (b *Board) sendStatus(ctx context.Context, a *attempt) (task models.Task, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("update task %d: %v: %w", a.taskID, r, models.ErrNetwork)
		}
	}()
	return b.remote.UpdateTaskStatus(ctx, a.taskID, a.to)
}

func (b *Board) record(r TransitionResult) *Pending {
	b.mu.Lock()
	if !b.closed && r.TaskID != 0 {
		b.results[r.TaskID] = r
	}
	b.mu.Unlock()
	b.metrics.ObserveTransition(r.Outcome.String())
	return resolved(r)
}
