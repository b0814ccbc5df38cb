// Package render prints boards, ledgers and notices for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"taskboard/internal/board"
	"taskboard/internal/models"
)

const dueLayout = "2006-01-02 15:04"

// Lane is one column of a snapshot.
type Lane struct {
	Status models.Status `yaml:"status"`
	Title  string        `yaml:"title"`
	Tasks  []models.Task `yaml:"tasks"`
}

// Snapshot is the serializable view of a board at one moment.
type Snapshot struct {
	Project models.Project `yaml:"project"`
	Actor   models.Actor   `yaml:"actor"`
	Lanes   []Lane         `yaml:"lanes"`
}

// NewSnapshot orders lanes the way the board displays them.
func NewSnapshot(project models.Project, actor models.Actor, lanes board.Lanes) Snapshot {
	s := Snapshot{Project: project, Actor: actor, Lanes: make([]Lane, 0, len(models.Statuses))}
	for _, status := range models.Statuses {
		tasks := lanes[status]
		if tasks == nil {
			tasks = []models.Task{}
		}
		s.Lanes = append(s.Lanes, Lane{Status: status, Title: status.Title(), Tasks: tasks})
	}
	return s
}

// YAML writes the snapshot as a YAML document.
func YAML(w io.Writer, s Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return enc.Close()
}

// Text writes the lanes one after another with a line per card.
func Text(w io.Writer, s Snapshot) {
	fmt.Fprintf(w, "%s (project %d)\n", s.Project.Name, s.Project.ID)
	if s.Project.Description != "" {
		fmt.Fprintf(w, "%s\n", s.Project.Description)
	}
	for _, lane := range s.Lanes {
		fmt.Fprintf(w, "\n%s (%d)\n%s\n", lane.Title, len(lane.Tasks), strings.Repeat("-", len(lane.Title)))
		if len(lane.Tasks) == 0 {
			fmt.Fprintln(w, "  (empty)")
			continue
		}
		for i, t := range lane.Tasks {
			fmt.Fprintf(w, "  %d. %s\n", i, Card(t))
		}
	}
}

// Card formats a single task on one line.
func Card(t models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d [%s] %s", t.ID, t.Priority, t.Title)
	if t.AssignedTo != nil {
		fmt.Fprintf(&b, " @%d", *t.AssignedTo)
	}
	if t.TotalHoursWorked > 0 || t.EstimatedHours != nil {
		fmt.Fprintf(&b, " %gh", t.TotalHoursWorked)
		if t.EstimatedHours != nil {
			fmt.Fprintf(&b, "/%gh", *t.EstimatedHours)
		}
	}
	if t.DueDate != nil {
		fmt.Fprintf(&b, " due %s", t.DueDate.Format(dueLayout))
	}
	return b.String()
}

// Hours writes a task's ledger and its total.
func Hours(w io.Writer, task models.Task, entries []models.HourLogEntry) {
	fmt.Fprintf(w, "Hours for #%d %s\n", task.ID, task.Title)
	var total float64
	for _, e := range entries {
		billable := ""
		if !e.IsBillable {
			billable = " (non-billable)"
		}
		fmt.Fprintf(w, "  %s  user %d  %gh%s", e.Date, e.UserID, e.Hours, billable)
		if e.Description != "" {
			fmt.Fprintf(w, "  %s", e.Description)
		}
		fmt.Fprintln(w)
		total += e.Hours
	}
	fmt.Fprintf(w, "Total: %gh\n", total)
}

// Projects lists the projects visible to the caller, one per line.
func Projects(w io.Writer, projects []models.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "No projects")
		return
	}
	for _, p := range projects {
		fmt.Fprintf(w, "%d  %s  (manager %d)\n", p.ID, p.Name, p.ProjectManagerID)
	}
}

// Members writes a project's team.
func Members(w io.Writer, project models.Project, members []models.ProjectMember) {
	fmt.Fprintf(w, "Team of %s (%d)\n", project.Name, len(members))
	for _, m := range members {
		name := m.Username
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "  user %d  %s\n", m.UserID, name)
	}
}

// Notice writes a board notice as a single tagged line.
func Notice(w io.Writer, n board.Notice) {
	fmt.Fprintf(w, "[%s] %s\n", n.Level, n.Message)
}
