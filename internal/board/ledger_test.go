package board

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/models"
)

func TestLogHours_OverwritesTotalWithServerValue(t *testing.T) {
	f := newFixture(t, teamMember())
	// Another user logged hours meanwhile; the server total is authoritative.
	f.remote.logTotal[7] = 11.5

	res, err := f.board.LogHours(context.Background(), 7, 2.5, "reviewed copy")
	require.NoError(t, err)
	assert.Equal(t, 2.5, res.HoursLogged)

	task, ok := f.board.Task(7)
	require.True(t, ok)
	assert.Equal(t, 11.5, task.TotalHoursWorked)
	assert.NotEqual(t, 3+2.5, task.TotalHoursWorked)

	lanes := f.board.Lanes()
	assert.Equal(t, 11.5, lanes[models.StatusApproval][0].TotalHoursWorked)
	assert.Equal(t, "Logged 2.5 hours successfully", f.notes.last().Message)
}

func TestLogHours_ZeroIsRejectedLocally(t *testing.T) {
	f := newFixture(t, teamMember())

	_, err := f.board.LogHours(context.Background(), 7, 0, "")

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, f.remote.count("LogHours"))
	assert.Equal(t, "Please enter valid hours", f.notes.last().Message)
}

func TestLogHours_LocalRejections(t *testing.T) {
	tests := []struct {
		name     string
		actor    models.Actor
		taskID   int64
		hours    float64
		category models.Category
	}{
		{"over a day", teamMember(), 7, 25, models.CategoryValidation},
		{"manager cannot log", owningManager(), 7, 1, models.CategoryForbidden},
		{"admin cannot log", admin(), 7, 1, models.CategoryForbidden},
		{"task assigned to someone else", teamMember(), 8, 1, models.CategoryValidation},
		{"task not on board", teamMember(), 999, 1, models.CategoryNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.actor)
			_, err := f.board.LogHours(context.Background(), tt.taskID, tt.hours, "")
			require.Error(t, err)
			assert.Equal(t, tt.category, models.Categorize(err))
			assert.Equal(t, 0, f.remote.count("LogHours"))
			assert.Equal(t, LevelError, f.notes.last().Level)
		})
	}
}

func TestLogHours_RemoteFailureKeepsCachedTotal(t *testing.T) {
	f := newFixture(t, teamMember())
	f.remote.logErr = fmt.Errorf("status 409: %w", models.ErrConflict)

	_, err := f.board.LogHours(context.Background(), 7, 1, "")
	require.ErrorIs(t, err, models.ErrConflict)

	task, _ := f.board.Task(7)
	assert.Equal(t, 3.0, task.TotalHoursWorked)
	assert.Equal(t, models.CategoryConflict, f.notes.last().Category)
}

func TestHourForm_RetainsInputOnFailure(t *testing.T) {
	f := newFixture(t, teamMember())
	f.remote.logErr = fmt.Errorf("dial: %w", models.ErrNetwork)

	form := &HourForm{TaskID: 7, Hours: "1.5", Description: "pairing"}
	_, err := form.Submit(context.Background(), f.board)
	require.Error(t, err)
	assert.Equal(t, "1.5", form.Hours)
	assert.Equal(t, "pairing", form.Description)

	f.remote.logErr = nil
	res, err := form.Submit(context.Background(), f.board)
	require.NoError(t, err)
	assert.Equal(t, 1.5, res.HoursLogged)
	assert.Empty(t, form.Hours)
	assert.Empty(t, form.Description)
	assert.Equal(t, 2, f.remote.count("LogHours"))
}

func TestHourForm_NotANumber(t *testing.T) {
	f := newFixture(t, teamMember())
	form := &HourForm{TaskID: 7, Hours: "two"}

	_, err := form.Submit(context.Background(), f.board)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "two", form.Hours)
	assert.Equal(t, 0, f.remote.count("LogHours"))
}

func TestHourForm_NaNNeverReachesBackend(t *testing.T) {
	f := newFixture(t, teamMember())
	form := &HourForm{TaskID: 42, Hours: "NaN"}

	_, err := form.Submit(context.Background(), f.board)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "hours", verr.Field)
	assert.Equal(t, 0, f.remote.count("LogHours"))
	assert.Equal(t, "Please enter valid hours", f.notes.last().Message)
}

func TestHourEntries(t *testing.T) {
	f := newFixture(t, teamMember())
	_, err := f.board.LogHours(context.Background(), 7, 2, "first")
	require.NoError(t, err)
	_, err = f.board.LogHours(context.Background(), 7, 1, "second")
	require.NoError(t, err)

	entries, err := f.board.HourEntries(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Description)

	task, _ := f.board.Task(7)
	assert.Equal(t, 6.0, task.TotalHoursWorked)
}
