package board

import (
	"context"
	"fmt"
	"log/slog"

	"taskboard/internal/models"
)

// CreateTask submits the create form and adds the new task to the board.
func (b *Board) CreateTask(ctx context.Context, req models.CreateTaskRequest) (models.Task, error) {
	if req.ProjectID == 0 {
		req.ProjectID = b.projectID
	}
	if err := b.checkManage("create tasks", 0); err != nil {
		return models.Task{}, err
	}
	if err := req.Validate(); err != nil {
		return models.Task{}, b.rejectInput(0, err)
	}
	if req.ProjectID != b.projectID {
		return models.Task{}, b.rejectInput(0, &models.ValidationError{Field: "project_id", Message: "task belongs to another project"})
	}
	if req.DueDate != nil {
		if err := models.ValidateCreateDueDate(*req.DueDate, b.clock()); err != nil {
			return models.Task{}, b.rejectInput(0, err)
		}
	}
	if err := models.ValidateAssignee(b.Project(), req.AssignedTo); err != nil {
		return models.Task{}, b.rejectInput(0, err)
	}

	task, err := b.remote.CreateTask(ctx, req)
	if err != nil {
		return models.Task{}, b.remoteFailure("create task", 0, err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return task, nil
	}
	b.tasks = append(b.tasks, task)
	snapshot := b.reproject()
	b.mu.Unlock()

	b.changed(snapshot)
	b.notify(Notice{Level: LevelSuccess, TaskID: task.ID, Message: "Task created successfully!"})
	return task, nil
}

// EditTask submits the edit form for taskID. A status change in the payload is
// authorized like a drop; a due date is checked against the clock at submit time.
func (b *Board) EditTask(ctx context.Context, taskID int64, req models.UpdateTaskRequest) (models.Task, error) {
	if err := b.checkManage("edit tasks", taskID); err != nil {
		return models.Task{}, err
	}
	if err := req.Validate(); err != nil {
		return models.Task{}, b.rejectInput(taskID, err)
	}
	if req.IsEmpty() {
		return models.Task{}, b.rejectInput(taskID, &models.ValidationError{Message: "no changes to save"})
	}
	if req.DueDate != nil {
		if err := models.ValidateDueDate(*req.DueDate, b.clock()); err != nil {
			return models.Task{}, b.rejectInput(taskID, err)
		}
	}

	b.mu.Lock()
	idx := b.indexOf(taskID)
	if idx < 0 {
		b.mu.Unlock()
		b.notify(Notice{Level: LevelError, Category: models.CategoryNotFound, TaskID: taskID, Message: "Task not found on this board"})
		return models.Task{}, fmt.Errorf("task %d: %w", taskID, models.ErrNotFound)
	}
	task := b.tasks[idx]
	if req.Status != nil {
		dec := b.authority.Authorize(b.actor, task, b.project, task.Status, *req.Status)
		if !dec.Allowed {
			b.mu.Unlock()
			err := dec.Err()
			b.notify(Notice{Level: LevelError, Category: models.Categorize(err), TaskID: taskID, Message: dec.Message})
			return models.Task{}, err
		}
	}
	if err := models.ValidateAssignee(b.project, req.AssignedTo); err != nil {
		b.mu.Unlock()
		return models.Task{}, b.rejectInput(taskID, err)
	}
	a, ok := b.hold(taskID, task.Status)
	if !ok {
		b.mu.Unlock()
		return models.Task{}, b.busy(taskID)
	}
	b.mu.Unlock()
	b.logger.Debug("edit started", slog.String("attempt_id", a.id), slog.Int64("task_id", taskID))

	updated, err := b.remote.UpdateTask(ctx, taskID, req)

	b.mu.Lock()
	delete(b.inFlight, taskID)
	if err != nil {
		b.mu.Unlock()
		return models.Task{}, b.remoteFailure("update task", taskID, err)
	}
	if b.closed {
		b.mu.Unlock()
		return updated, nil
	}
	if i := b.indexOf(taskID); i >= 0 {
		b.tasks[i] = updated
	}
	snapshot := b.reproject()
	b.mu.Unlock()

	b.changed(snapshot)
	b.notify(Notice{Level: LevelSuccess, TaskID: taskID, Message: "Task updated successfully!"})
	return updated, nil
}

// DeleteTask removes taskID. The backend refuses with Conflict while timesheet
// entries reference the task; that refusal is surfaced, not swallowed.
func (b *Board) DeleteTask(ctx context.Context, taskID int64) error {
	if err := b.checkManage("delete tasks", taskID); err != nil {
		return err
	}
	b.mu.Lock()
	status := models.StatusToDo
	if i := b.indexOf(taskID); i >= 0 {
		status = b.tasks[i].Status
	}
	if _, ok := b.hold(taskID, status); !ok {
		b.mu.Unlock()
		return b.busy(taskID)
	}
	b.mu.Unlock()

	err := b.remote.DeleteTask(ctx, taskID)

	b.mu.Lock()
	delete(b.inFlight, taskID)
	gone := err == nil || models.Categorize(err) == models.CategoryNotFound
	if gone && !b.closed {
		if i := b.indexOf(taskID); i >= 0 {
			b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
		}
		snapshot := b.reproject()
		b.mu.Unlock()
		b.changed(snapshot)
	} else {
		b.mu.Unlock()
	}
	if err != nil {
		cat := models.Categorize(err)
		msg := failureMessage("delete task", cat)
		switch cat {
		case models.CategoryConflict:
			msg = "Cannot delete task: Task has existing timesheet entries"
		case models.CategoryForbidden:
			msg = "Permission denied: Only project managers can delete tasks"
		case models.CategoryNotFound:
			msg = "Task not found"
		}
		b.logger.Error("failed to delete task", slog.Int64("task_id", taskID), slog.String("error", err.Error()))
		b.notify(Notice{Level: LevelError, Category: cat, TaskID: taskID, Message: msg})
		return err
	}
	b.notify(Notice{Level: LevelSuccess, TaskID: taskID, Message: "Task deleted successfully"})
	return nil
}

func (b *Board) checkManage(action string, taskID int64) error {
	if b.Can(CapManageTasks) {
		return nil
	}
	b.notify(Notice{Level: LevelError, Category: models.CategoryForbidden, TaskID: taskID,
		Message: "Permission denied: only admins and project managers can " + action})
	return fmt.Errorf("%s: %w", action, models.ErrForbidden)
}

func (b *Board) busy(taskID int64) error {
	b.notify(Notice{Level: LevelInfo, TaskID: taskID, Message: "Task is updating, try again in a moment"})
	return &models.ValidationError{Field: "task", Message: "task is updating"}
}

func (b *Board) rejectInput(taskID int64, err error) error {
	b.notify(Notice{Level: LevelError, Category: models.CategoryValidation, TaskID: taskID, Message: err.Error()})
	return err
}

func (b *Board) remoteFailure(action string, taskID int64, err error) error {
	cat := models.Categorize(err)
	b.logger.Error("request failed", slog.String("action", action), slog.Int64("task_id", taskID), slog.String("error", err.Error()))
	b.notify(Notice{Level: LevelError, Category: cat, TaskID: taskID, Message: failureMessage(action, cat)})
	return err
}
