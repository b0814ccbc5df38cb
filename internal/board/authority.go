package board

import (
	"fmt"

	"taskboard/internal/models"
)

// Denial reasons.
const (
	ReasonForbiddenTerminal = "forbidden-terminal-transition"
	ReasonForbiddenReopen   = "forbidden-reopen-transition"
	ReasonUnknownLane       = "unknown-lane"
	ReasonProjectMismatch   = "project-mismatch"
)

// Capability is an action gated by role and project ownership.
type Capability string

const (
	CapManageTasks   Capability = "manage-tasks"
	CapCompleteTasks Capability = "complete-tasks"
	CapLogHours      Capability = "log-hours"
)

// Decision is the authority's verdict on a proposed transition.
type Decision struct {
	Allowed bool
	// Noop marks an allowed transition that changes nothing.
	Noop    bool
	Reason  string
	Message string
}

// Err converts a denial into an error: a ValidationError for an unknown lane,
// Forbidden otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == ReasonUnknownLane {
		return &models.ValidationError{Field: "status", Message: d.Message}
	}
	return fmt.Errorf("%s: %w", d.Message, models.ErrForbidden)
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason, message string) Decision {
	return Decision{Reason: reason, Message: message}
}

// Authority decides transitions and capabilities for an actor.
// Every role check on the board goes through it.
type Authority struct {
	// GateReopen also denies moving a task out of completed to actors who may
	// not complete tasks.
	GateReopen bool
}

// IsManager reports whether actor manages project: an admin, a project
// manager, or the project's own manager by id.
func (a Authority) IsManager(actor models.Actor, project models.Project) bool {
	switch actor.Role {
	case models.RoleAdmin, models.RoleProjectManager:
		return true
	}
	return project.ProjectManagerID != 0 && project.ProjectManagerID == actor.ID
}

// Can reports whether actor holds capability c on project. Logging hours needs
// the team member role and a seat on the project's team.
func (a Authority) Can(actor models.Actor, project models.Project, c Capability) bool {
	switch c {
	case CapManageTasks:
		return a.IsManager(actor, project)
	case CapCompleteTasks:
		return actor.Role != models.RoleTeamMember || a.IsManager(actor, project)
	case CapLogHours:
		return actor.Role == models.RoleTeamMember && project.HasMember(actor.ID)
	default:
		return false
	}
}

// Authorize decides whether actor may move task from one lane to another.
// Any lane may be dragged to any other; only entering completed is gated.
func (a Authority) Authorize(actor models.Actor, task models.Task, project models.Project, from, to models.Status) Decision {
	if !to.IsValid() {
		return deny(ReasonUnknownLane, fmt.Sprintf("unknown lane %q", to))
	}
	if task.ProjectID != 0 && project.ID != 0 && task.ProjectID != project.ID {
		return deny(ReasonProjectMismatch, "Task does not belong to this project")
	}
	if from == to {
		return Decision{Allowed: true, Noop: true}
	}
	if to == models.StatusCompleted && !a.Can(actor, project, CapCompleteTasks) {
		return deny(ReasonForbiddenTerminal, "Only admins and project managers can mark tasks as completed")
	}
	if a.GateReopen && from == models.StatusCompleted && !a.Can(actor, project, CapCompleteTasks) {
		return deny(ReasonForbiddenReopen, "Only admins and project managers can reopen completed tasks")
	}
	return allow()
}
