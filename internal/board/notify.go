package board

import "taskboard/internal/models"

// Level is the severity of a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notice is a non-blocking, user-facing message (a toast in the browser console).
type Notice struct {
	Level    Level           `json:"level"`
	Category models.Category `json:"category,omitempty"`
	TaskID   int64           `json:"task_id,omitempty"`
	Message  string          `json:"message"`
}

// Notifier receives notices emitted by the board.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) { f(n) }

type discardNotifier struct{}

func (discardNotifier) Notify(Notice) {}

// failureMessage words a failed action for the user by category.
func failureMessage(action string, cat models.Category) string {
	switch cat {
	case models.CategoryForbidden:
		return "Permission denied: you are not allowed to " + action
	case models.CategoryConflict:
		return "Conflict: could not " + action + ", the task changed or is blocked by timesheet entries"
	case models.CategoryNotFound:
		return "Task not found: it may have been deleted by someone else"
	default:
		return "Failed to " + action
	}
}
