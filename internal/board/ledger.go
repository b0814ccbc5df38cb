package board

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"taskboard/internal/models"
)

// LogHours appends a ledger entry for taskID and refreshes the task from the
// backend's answer. The returned task's total_hours_worked replaces the cached
// value; totals are never computed locally. Nothing is rendered before the
// backend confirms.
func (b *Board) LogHours(ctx context.Context, taskID int64, hours float64, description string) (models.HourLogResult, error) {
	if err := models.ValidateHours(hours); err != nil {
		b.notify(Notice{Level: LevelError, Category: models.CategoryValidation, TaskID: taskID, Message: "Please enter valid hours"})
		return models.HourLogResult{}, err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return models.HourLogResult{}, ErrClosed
	}
	idx := b.indexOf(taskID)
	if idx < 0 {
		b.mu.Unlock()
		b.notify(Notice{Level: LevelError, Category: models.CategoryNotFound, TaskID: taskID, Message: "Task not found on this board"})
		return models.HourLogResult{}, fmt.Errorf("task %d: %w", taskID, models.ErrNotFound)
	}
	if !b.authority.Can(b.actor, b.project, CapLogHours) {
		b.mu.Unlock()
		b.notify(Notice{Level: LevelError, Category: models.CategoryForbidden, TaskID: taskID, Message: "Only team members can log hours"})
		return models.HourLogResult{}, fmt.Errorf("log hours: %w", models.ErrForbidden)
	}
	if err := models.ValidateHourEntry(b.actor, b.tasks[idx], hours); err != nil {
		b.mu.Unlock()
		b.notify(Notice{Level: LevelError, Category: models.CategoryValidation, TaskID: taskID, Message: err.Error()})
		return models.HourLogResult{}, err
	}
	if _, busy := b.logging[taskID]; busy {
		b.mu.Unlock()
		return models.HourLogResult{}, &models.ValidationError{Field: "task", Message: "hours for this task are already being submitted"}
	}
	b.logging[taskID] = struct{}{}
	b.mu.Unlock()

	res, err := b.remote.LogHours(ctx, taskID, hours, strings.TrimSpace(description))

	b.mu.Lock()
	delete(b.logging, taskID)
	if b.closed {
		b.mu.Unlock()
		return res, err
	}
	if err != nil {
		b.mu.Unlock()
		cat := models.Categorize(err)
		b.logger.Error("failed to log hours", slog.Int64("task_id", taskID), slog.String("error", err.Error()))
		b.notify(Notice{Level: LevelError, Category: cat, TaskID: taskID, Message: failureMessage("log hours", cat)})
		return res, err
	}
	if i := b.indexOf(taskID); i >= 0 && res.Task.ID == taskID {
		patched := res.Task
		if a, ok := b.inFlight[taskID]; ok {
			patched.Status = a.to
		}
		b.tasks[i] = patched
	}
	snapshot := b.reproject()
	b.mu.Unlock()

	b.metrics.ObserveHours(res.HoursLogged)
	b.changed(snapshot)
	b.notify(Notice{Level: LevelSuccess, TaskID: taskID, Message: fmt.Sprintf("Logged %s hours successfully", formatHours(res.HoursLogged))})
	return res, nil
}

// HourEntries reads the ledger of a task.
func (b *Board) HourEntries(ctx context.Context, taskID int64) ([]models.HourLogEntry, error) {
	entries, err := b.remote.FetchHourLog(ctx, taskID)
	if err != nil {
		cat := models.Categorize(err)
		b.notify(Notice{Level: LevelError, Category: cat, TaskID: taskID, Message: failureMessage("load logged hours", cat)})
		return nil, err
	}
	return entries, nil
}

// HourForm holds the raw input of the log-hours dialog. A failed submission
// keeps the input so the user can retry without typing it again.
type HourForm struct {
	TaskID      int64
	Hours       string
	Description string
}

// Submit parses the form and logs the hours on b. The fields are cleared only on success.
func (f *HourForm) Submit(ctx context.Context, b *Board) (models.HourLogResult, error) {
	hours, err := strconv.ParseFloat(strings.TrimSpace(f.Hours), 64)
	if err != nil {
		b.notify(Notice{Level: LevelError, Category: models.CategoryValidation, TaskID: f.TaskID, Message: "Please enter valid hours"})
		return models.HourLogResult{}, &models.ValidationError{Field: "hours", Message: "hours must be a number"}
	}
	res, err := b.LogHours(ctx, f.TaskID, hours, f.Description)
	if err != nil {
		return res, err
	}
	f.Hours = ""
	f.Description = ""
	return res, nil
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
