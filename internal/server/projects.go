package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
)

type projectRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	ProjectManagerID int64  `json:"project_manager_id"`
}

// handleListProjects returns all available projects.
func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.store.ListProjects(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects})
}

// handleGetProject returns one project with its manager.
func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, err := s.store.GetProject(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleCreateProject creates a new project. Admins and project managers only;
// a project manager who names nobody manages the project themselves.
func (s *Server) handleCreateProject(c *gin.Context) {
	actor, err := actorFrom(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleProjectManager {
		s.respondError(c, fmt.Errorf("only admins and project managers can create projects: %w", models.ErrForbidden))
		return
	}

	var req projectRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if req.ProjectManagerID == 0 && actor.Role == models.RoleProjectManager {
		req.ProjectManagerID = actor.ID
	}

	project, err := s.store.CreateProject(c.Request.Context(), models.Project{
		Name:             req.Name,
		Description:      req.Description,
		ProjectManagerID: req.ProjectManagerID,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

// handleUpdateProject renames a project or hands it to another manager.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, project, ok := s.loadProject(c, id)
	if !ok {
		return
	}
	if !s.authority.IsManager(actor, project) {
		s.respondError(c, fmt.Errorf("only the project's managers can change it: %w", models.ErrForbidden))
		return
	}

	var req projectRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if req.ProjectManagerID == 0 {
		req.ProjectManagerID = project.ProjectManagerID
	}

	updated, err := s.store.UpdateProject(c.Request.Context(), id, models.Project{
		Name:             req.Name,
		Description:      req.Description,
		ProjectManagerID: req.ProjectManagerID,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": updated})
}

// handleDeleteProject removes a project and its tasks. Admins only.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, err := actorFrom(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if actor.Role != models.RoleAdmin {
		s.respondError(c, fmt.Errorf("only admins can delete projects: %w", models.ErrForbidden))
		return
	}
	if err := s.store.DeleteProject(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleListMembers returns the team of a project.
func (s *Server) handleListMembers(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	members, err := s.store.ListMembers(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"members": members})
}

// handleAddMember puts a user on the project's team. Managers of the project only.
func (s *Server) handleAddMember(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, project, ok := s.loadProject(c, id)
	if !ok {
		return
	}
	if !s.authority.IsManager(actor, project) {
		s.respondError(c, fmt.Errorf("only the project's managers can change its team: %w", models.ErrForbidden))
		return
	}

	var req models.AddMemberRequest
	if !s.bindJSON(c, &req) {
		return
	}
	member, err := s.store.AddMember(c.Request.Context(), id, req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"member": member})
}

// handleRemoveMember takes a user off the project's team.
func (s *Server) handleRemoveMember(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, ok := parseID(c, "userId")
	if !ok {
		return
	}
	actor, project, ok := s.loadProject(c, id)
	if !ok {
		return
	}
	if !s.authority.IsManager(actor, project) {
		s.respondError(c, fmt.Errorf("only the project's managers can change its team: %w", models.ErrForbidden))
		return
	}
	if err := s.store.RemoveMember(c.Request.Context(), id, userID); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "removed"})
}

// loadProject resolves the actor and the project with the given id,
// responding with the error when either is missing.
func (s *Server) loadProject(c *gin.Context, id int64) (models.Actor, models.Project, bool) {
	actor, err := actorFrom(c)
	if err != nil {
		s.respondError(c, err)
		return models.Actor{}, models.Project{}, false
	}
	project, err := s.store.GetProject(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return models.Actor{}, models.Project{}, false
	}
	return actor, project, true
}
