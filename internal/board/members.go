package board

import (
	"context"
	"fmt"
	"log/slog"

	"taskboard/internal/models"
)

// Members returns the project's team as last loaded.
func (b *Board) Members() []models.ProjectMember {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.ProjectMember(nil), b.project.Members...)
}

// AddMember puts a user on the project's team. Only managers of the project
// may change the team.
func (b *Board) AddMember(ctx context.Context, req models.AddMemberRequest) (models.ProjectMember, error) {
	if err := b.checkTeam("add team members"); err != nil {
		return models.ProjectMember{}, err
	}
	if err := req.Validate(); err != nil {
		return models.ProjectMember{}, b.rejectInput(0, err)
	}
	if b.Project().HasMember(req.UserID) {
		return models.ProjectMember{}, b.rejectInput(0, &models.ValidationError{Field: "user_id", Message: "user is already a member of this project"})
	}

	member, err := b.remote.AddProjectMember(ctx, b.projectID, req)
	if err != nil {
		return models.ProjectMember{}, b.teamFailure("add team member", err)
	}

	b.mu.Lock()
	if !b.closed {
		b.project.Members = append(b.project.Members, member)
	}
	b.mu.Unlock()
	b.notify(Notice{Level: LevelSuccess, Message: "Team member added successfully"})
	return member, nil
}

// RemoveMember takes a user off the project's team. Tasks already assigned to
// the user keep their assignee.
func (b *Board) RemoveMember(ctx context.Context, userID int64) error {
	if err := b.checkTeam("remove team members"); err != nil {
		return err
	}

	err := b.remote.RemoveProjectMember(ctx, b.projectID, userID)
	if err != nil && models.Categorize(err) != models.CategoryNotFound {
		return b.teamFailure("remove team member", err)
	}

	b.mu.Lock()
	if !b.closed {
		kept := b.project.Members[:0:0]
		for _, m := range b.project.Members {
			if m.UserID != userID {
				kept = append(kept, m)
			}
		}
		b.project.Members = kept
	}
	b.mu.Unlock()
	if err != nil {
		return b.teamFailure("remove team member", err)
	}
	b.notify(Notice{Level: LevelSuccess, Message: "Team member removed successfully"})
	return nil
}

func (b *Board) checkTeam(action string) error {
	b.mu.Lock()
	ok := b.authority.IsManager(b.actor, b.project)
	b.mu.Unlock()
	if ok {
		return nil
	}
	b.notify(Notice{Level: LevelError, Category: models.CategoryForbidden,
		Message: "Permission denied: only admins and project managers can " + action})
	return fmt.Errorf("%s: %w", action, models.ErrForbidden)
}

func (b *Board) teamFailure(action string, err error) error {
	cat := models.Categorize(err)
	msg := failureMessage(action, cat)
	switch cat {
	case models.CategoryConflict:
		msg = "User is already a member of this project"
	case models.CategoryNotFound:
		msg = "Team member not found"
	}
	b.logger.Error("team update failed", slog.String("action", action), slog.String("error", err.Error()))
	b.notify(Notice{Level: LevelError, Category: cat, Message: msg})
	return err
}
