package board

import (
	"context"

	"taskboard/internal/models"
)

// Remote is the backend holding the source of truth for a board.
type Remote interface {
	FetchProject(ctx context.Context, projectID int64) (models.Project, error)
	FetchTasksByProject(ctx context.Context, projectID int64) ([]models.Task, error)
	// UpdateTaskStatus fails with ErrForbidden, ErrConflict or ErrNotFound.
	UpdateTaskStatus(ctx context.Context, taskID int64, status models.Status) (models.Task, error)
	// DeleteTask fails with ErrConflict when timesheet entries exist.
	DeleteTask(ctx context.Context, taskID int64) error
	LogHours(ctx context.Context, taskID int64, hours float64, description string) (models.HourLogResult, error)
	FetchHourLog(ctx context.Context, taskID int64) ([]models.HourLogEntry, error)
	CreateTask(ctx context.Context, req models.CreateTaskRequest) (models.Task, error)
	UpdateTask(ctx context.Context, taskID int64, req models.UpdateTaskRequest) (models.Task, error)
	FetchProjectMembers(ctx context.Context, projectID int64) ([]models.ProjectMember, error)
	// AddProjectMember fails with ErrConflict when the user is already on the team.
	AddProjectMember(ctx context.Context, projectID int64, req models.AddMemberRequest) (models.ProjectMember, error)
	RemoveProjectMember(ctx context.Context, projectID, userID int64) error
}
