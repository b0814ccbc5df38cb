package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/board"
	"taskboard/internal/models"
)

// handleListTasks fetches tasks for a project.
func (s *Server) handleListTasks(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := s.store.GetProject(c.Request.Context(), projectID); err != nil {
		s.respondError(c, err)
		return
	}

	tasks, err := s.store.ListTasks(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleCreateTask inserts a new task into the to_do lane of a project.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req models.CreateTaskRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if req.ProjectID <= 0 {
		s.respondError(c, &models.ValidationError{Field: "project_id", Message: "is required"})
		return
	}
	actor, project, ok := s.loadProject(c, req.ProjectID)
	if !ok {
		return
	}
	if !s.authority.Can(actor, project, board.CapManageTasks) {
		s.respondError(c, fmt.Errorf("only admins and project managers can create tasks: %w", models.ErrForbidden))
		return
	}
	if err := models.ValidateAssignee(project, req.AssignedTo); err != nil {
		s.respondError(c, err)
		return
	}

	task, err := s.store.CreateTask(c.Request.Context(), req, actor.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleUpdateTask applies a partial update. A body carrying only a status is a
// board move and is open to every member; anything else needs manage-tasks.
// Entering completed is gated the same way the board gates a drop.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateTaskRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if req.IsEmpty() {
		s.respondError(c, &models.ValidationError{Message: "no changes to save"})
		return
	}

	actor, task, project, ok := s.loadTask(c, id)
	if !ok {
		return
	}
	if !req.IsStatusOnly() && !s.authority.Can(actor, project, board.CapManageTasks) {
		s.respondError(c, fmt.Errorf("only admins and project managers can edit tasks: %w", models.ErrForbidden))
		return
	}
	if err := models.ValidateAssignee(project, req.AssignedTo); err != nil {
		s.respondError(c, err)
		return
	}
	if req.Status != nil {
		if dec := s.authority.Authorize(actor, task, project, task.Status, *req.Status); !dec.Allowed {
			s.respondError(c, dec.Err())
			return
		}
	}

	updated, err := s.store.UpdateTask(c.Request.Context(), id, req, actor.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if updated.Status != task.Status {
		s.metrics.ObserveStatusChange(string(updated.Status))
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": updated})
}

// handleDeleteTask removes a task that has no timesheet entries.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, _, project, ok := s.loadTask(c, id)
	if !ok {
		return
	}
	if !s.authority.Can(actor, project, board.CapManageTasks) {
		s.respondError(c, fmt.Errorf("only project managers can delete tasks: %w", models.ErrForbidden))
		return
	}
	if err := s.store.DeleteTask(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleLogHours appends a timesheet entry for a member of the project's team and
// answers with the task carrying its recomputed total.
func (s *Server) handleLogHours(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req models.LogHoursRequest
	if !s.bindJSON(c, &req) {
		return
	}

	actor, task, project, ok := s.loadTask(c, id)
	if !ok {
		return
	}
	if !s.authority.Can(actor, project, board.CapLogHours) {
		s.respondError(c, fmt.Errorf("only team members on the project's team can log hours: %w", models.ErrForbidden))
		return
	}
	if err := models.ValidateHourEntry(actor, task, req.Hours); err != nil {
		s.respondError(c, err)
		return
	}

	billable := true
	if req.IsBillable != nil {
		billable = *req.IsBillable
	}
	updated, err := s.store.LogHours(c.Request.Context(), models.HourLogEntry{
		TaskID:      id,
		UserID:      actor.ID,
		Hours:       req.Hours,
		Date:        req.Date,
		Description: req.Description,
		IsBillable:  billable,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.metrics.ObserveHours(req.Hours)
	respondSuccess(c, http.StatusCreated, models.HourLogResult{Task: updated, HoursLogged: req.Hours})
}

// handleListHours returns the ledger of a task.
func (s *Server) handleListHours(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	entries, err := s.store.ListHours(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"entries": entries})
}

// loadTask resolves the actor, the task and its project.
func (s *Server) loadTask(c *gin.Context, id int64) (models.Actor, models.Task, models.Project, bool) {
	actor, err := actorFrom(c)
	if err != nil {
		s.respondError(c, err)
		return models.Actor{}, models.Task{}, models.Project{}, false
	}
	task, err := s.store.GetTask(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return models.Actor{}, models.Task{}, models.Project{}, false
	}
	project, err := s.store.GetProject(c.Request.Context(), task.ProjectID)
	if err != nil {
		s.respondError(c, err)
		return models.Actor{}, models.Task{}, models.Project{}, false
	}
	return actor, task, project, true
}
