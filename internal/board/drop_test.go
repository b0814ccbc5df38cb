package board

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/models"
)

func TestOnDrop_TeamMemberCompletingIsDenied(t *testing.T) {
	f := newFixture(t, teamMember())
	before := f.board.Lanes()

	res := waitResult(t, f.board.OnDrop(context.Background(),
		dropAt(42, Position{Lane: models.StatusToDo, Index: 0}, models.StatusCompleted, 0)))

	assert.Equal(t, OutcomeDenied, res.Outcome)
	assert.Equal(t, ReasonForbiddenTerminal, res.Reason)
	assert.Equal(t, models.CategoryForbidden, res.Category)
	assert.Equal(t, 0, f.remote.count("UpdateTaskStatus"))

	n := f.notes.last()
	assert.Equal(t, LevelError, n.Level)
	assert.Equal(t, "Only admins and project managers can mark tasks as completed", n.Message)

	after := f.board.Lanes()
	assert.Equal(t, before, after)
	pos, ok := after.Find(42)
	require.True(t, ok)
	assert.Equal(t, Position{Lane: models.StatusToDo, Index: 0}, pos)
}

func TestOnDrop_OwningManagerMovesBackward(t *testing.T) {
	f := newFixture(t, owningManager())

	res := waitResult(t, f.board.OnDrop(context.Background(),
		dropAt(7, Position{Lane: models.StatusApproval, Index: 0}, models.StatusInProgress, 0)))

	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.NotEmpty(t, res.AttemptID)
	assert.Contains(t, laneIDs(f.board.Lanes(), models.StatusInProgress), int64(7))
	assert.Empty(t, f.board.Lanes()[models.StatusApproval])
	assert.Equal(t, 0, f.remote.count("LogHours"))

	task, ok := f.board.Task(7)
	require.True(t, ok)
	assert.Equal(t, 3.0, task.TotalHoursWorked)
	assert.Equal(t, LevelSuccess, f.notes.last().Level)
}

func TestOnDrop_OriginIsNoop(t *testing.T) {
	f := newFixture(t, admin())
	before := f.board.Lanes()
	origin := Position{Lane: models.StatusToDo, Index: 1}

	tests := map[string]Drop{
		"same slot":      {TaskID: 43, Source: origin, Dest: &Position{Lane: models.StatusToDo, Index: 1}},
		"outside lanes":  {TaskID: 43, Source: origin},
		"same lane move": {TaskID: 43, Source: origin, Dest: &Position{Lane: models.StatusToDo, Index: 0}},
	}
	for name, d := range tests {
		t.Run(name, func(t *testing.T) {
			res := waitResult(t, f.board.OnDrop(context.Background(), d))
			assert.Equal(t, OutcomeNoop, res.Outcome)
		})
	}

	assert.Equal(t, 0, f.remote.totalCalls())
	assert.Empty(t, f.notes.all())
	assert.Equal(t, before, f.board.Lanes())
}

func TestOnDrop_RemoteFailureRollsBack(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category models.Category
		contains string
	}{
		{"forbidden", fmt.Errorf("status 403: %w", models.ErrForbidden), models.CategoryForbidden, "Permission denied"},
		{"conflict", fmt.Errorf("status 409: %w", models.ErrConflict), models.CategoryConflict, "Conflict"},
		{"not found", fmt.Errorf("status 404: %w", models.ErrNotFound), models.CategoryNotFound, "not found"},
		{"network", fmt.Errorf("dial tcp: connection refused"), models.CategoryNetwork, "Failed to update task status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, teamMember())
			f.remote.failures[8] = tt.err
			before := f.board.Lanes()

			res := waitResult(t, f.board.OnDrop(context.Background(),
				dropAt(8, Position{Lane: models.StatusInProgress, Index: 0}, models.StatusApproval, 1)))

			assert.Equal(t, OutcomeRolledBack, res.Outcome)
			assert.Equal(t, tt.category, res.Category)
			assert.Equal(t, models.StatusInProgress, res.From)
			assert.Equal(t, 1, f.remote.count("UpdateTaskStatus"))

			task, ok := f.board.Task(8)
			require.True(t, ok)
			assert.Equal(t, models.StatusInProgress, task.Status)
			assert.Equal(t, before, f.board.Lanes())

			n := f.notes.last()
			assert.Equal(t, LevelError, n.Level)
			assert.Equal(t, tt.category, n.Category)
			assert.Contains(t, n.Message, tt.contains)
			assert.False(t, f.board.InFlight(8))

			last, ok := f.board.LastResult(8)
			require.True(t, ok)
			assert.Equal(t, OutcomeRolledBack, last.Outcome)
		})
	}
}

func TestOnDrop_OptimisticBeforeConfirmation(t *testing.T) {
	f := newFixture(t, teamMember())
	f.remote.hold = true

	p := f.board.OnDrop(context.Background(),
		dropAt(8, Position{Lane: models.StatusInProgress, Index: 0}, models.StatusApproval, 0))
	assert.Equal(t, int64(8), <-f.remote.started)

	// Rendered in the destination lane while the request is outstanding.
	assert.Contains(t, laneIDs(f.board.Lanes(), models.StatusApproval), int64(8))
	assert.True(t, f.board.InFlight(8))
	select {
	case <-p.Done():
		t.Fatal("drop resolved before the backend answered")
	default:
	}

	f.remote.release <- struct{}{}
	assert.Equal(t, OutcomeApplied, waitResult(t, p).Outcome)
	assert.False(t, f.board.InFlight(8))
}

func TestOnDrop_SecondDragOnSameTaskIsRejected(t *testing.T) {
	f := newFixture(t, teamMember())
	f.remote.hold = true

	first := f.board.OnDrop(context.Background(),
		dropAt(8, Position{Lane: models.StatusInProgress, Index: 0}, models.StatusApproval, 0))
	<-f.remote.started

	second := waitResult(t, f.board.OnDrop(context.Background(),
		dropAt(8, Position{Lane: models.StatusApproval, Index: 0}, models.StatusToDo, 0)))
	assert.Equal(t, OutcomeBusy, second.Outcome)
	assert.Contains(t, f.notes.last().Message, "updating")
	assert.Equal(t, 1, f.remote.count("UpdateTaskStatus"))

	// The card stays at its optimistic position.
	task, _ := f.board.Task(8)
	assert.Equal(t, models.StatusApproval, task.Status)

	f.remote.release <- struct{}{}
	assert.Equal(t, OutcomeApplied, waitResult(t, first).Outcome)
	task, _ = f.board.Task(8)
	assert.Equal(t, models.StatusApproval, task.Status)

	// Once resolved the task is draggable again.
	f.remote.hold = false
	third := waitResult(t, f.board.OnDrop(context.Background(),
		dropAt(8, Position{Lane: models.StatusApproval, Index: 0}, models.StatusToDo, 0)))
	assert.Equal(t, OutcomeApplied, third.Outcome)
	task, _ = f.board.Task(8)
	assert.Equal(t, models.StatusToDo, task.Status)
}

func TestOnDrop_OtherTasksStayDraggable(t *testing.T) {
	f := newFixture(t, teamMember())
	f.remote.hold = true

	p8 := f.board.OnDrop(context.Background(),
		dropAt(8, Position{Lane: models.StatusInProgress, Index: 0}, models.StatusApproval, 0))
	p43 := f.board.OnDrop(context.Background(),
		dropAt(43, Position{Lane: models.StatusToDo, Index: 1}, models.StatusInProgress, 0))
	<-f.remote.started
	<-f.remote.started

	f.remote.release <- struct{}{}
	f.remote.release <- struct{}{}

	assert.Equal(t, OutcomeApplied, waitResult(t, p8).Outcome)
	assert.Equal(t, OutcomeApplied, waitResult(t, p43).Outcome)

	lanes := f.board.Lanes()
	assert.Contains(t, laneIDs(lanes, models.StatusApproval), int64(8))
	assert.Contains(t, laneIDs(lanes, models.StatusInProgress), int64(43))
}

func TestOnDrop_ResolutionAfterCloseIsDiscarded(t *testing.T) {
	f := newFixture(t, teamMember())
	f.remote.hold = true
	changes := 0
	f.board.onChange = func(Lanes) { changes++ }

	p := f.board.OnDrop(context.Background(),
		dropAt(8, Position{Lane: models.StatusInProgress, Index: 0}, models.StatusApproval, 0))
	<-f.remote.started
	f.board.Close()
	notices := len(f.notes.all())
	seen := changes

	f.remote.release <- struct{}{}
	res := waitResult(t, p)
	f.board.Wait()

	assert.Equal(t, OutcomeDiscarded, res.Outcome)
	assert.Len(t, f.notes.all(), notices)
	assert.Equal(t, seen, changes)

	late := waitResult(t, f.board.OnDrop(context.Background(),
		dropAt(43, Position{Lane: models.StatusToDo, Index: 1}, models.StatusApproval, 0)))
	assert.Equal(t, OutcomeDiscarded, late.Outcome)
	assert.ErrorIs(t, late.Err, ErrClosed)
}

func TestOnDrop_PanickingRemoteRollsBack(t *testing.T) {
	f := newFixture(t, teamMember())
	f.remote.statusHook = func(int64, models.Status) { panic("boom") }

	res := waitResult(t, f.board.OnDrop(context.Background(),
		dropAt(8, Position{Lane: models.StatusInProgress, Index: 0}, models.StatusApproval, 0)))

	assert.Equal(t, OutcomeRolledBack, res.Outcome)
	assert.Equal(t, models.CategoryNetwork, res.Category)
	task, _ := f.board.Task(8)
	assert.Equal(t, models.StatusInProgress, task.Status)
}

func TestOnDrop_UnknownTask(t *testing.T) {
	f := newFixture(t, admin())

	res := waitResult(t, f.board.OnDrop(context.Background(),
		dropAt(999, Position{Lane: models.StatusToDo, Index: 0}, models.StatusApproval, 0)))

	assert.Equal(t, OutcomeDenied, res.Outcome)
	assert.Equal(t, models.CategoryNotFound, res.Category)
	assert.Equal(t, 0, f.remote.count("UpdateTaskStatus"))
}

func TestReload_KeepsOptimisticStatusOfInFlightTask(t *testing.T) {
	f := newFixture(t, teamMember())
	f.remote.hold = true

	p := f.board.OnDrop(context.Background(),
		dropAt(8, Position{Lane: models.StatusInProgress, Index: 0}, models.StatusApproval, 0))
	<-f.remote.started

	require.NoError(t, f.board.Reload(context.Background()))
	assert.Contains(t, laneIDs(f.board.Lanes(), models.StatusApproval), int64(8))

	f.remote.release <- struct{}{}
	assert.Equal(t, OutcomeApplied, waitResult(t, p).Outcome)
}

func TestReload_RejectsUnknownStatus(t *testing.T) {
	f := newFixture(t, admin())
	before := f.board.Lanes()

	f.remote.mu.Lock()
	bad := f.remote.tasks[9]
	bad.Status = "archived"
	f.remote.tasks[9] = bad
	f.remote.mu.Unlock()

	err := f.board.Reload(context.Background())
	var derr *models.DataIntegrityError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, before, f.board.Lanes())
	assert.Equal(t, models.CategoryIntegrity, f.notes.last().Category)
}

func TestReload_FetchFailure(t *testing.T) {
	f := newFixture(t, admin())
	f.remote.fetchErr = fmt.Errorf("dial: %w", models.ErrNetwork)

	err := f.board.Reload(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Failed to load project data", f.notes.last().Message)
	assert.Equal(t, 5, f.board.Lanes().Len())
}

func TestNew_RequiresRemote(t *testing.T) {
	_, err := New(Options{ProjectID: 1})
	assert.Error(t, err)

	_, err = New(Options{Remote: newFakeRemote(testProject)})
	assert.Error(t, err)
}
