package models

import "time"

// Status is the lane a task currently sits in.
type Status string

const (
	StatusToDo       Status = "to_do"
	StatusInProgress Status = "in_progress"
	StatusApproval   Status = "approval"
	StatusCompleted  Status = "completed"
)

// Statuses lists the board lanes in display order.
var Statuses = []Status{StatusToDo, StatusInProgress, StatusApproval, StatusCompleted}

var laneTitles = map[Status]string{
	StatusToDo:       "To Do",
	StatusInProgress: "In Progress",
	StatusApproval:   "Approval",
	StatusCompleted:  "Completed",
}

// IsValid reports whether s is one of the four board lanes.
func (s Status) IsValid() bool {
	_, ok := laneTitles[s]
	return ok
}

// Title returns the human readable lane name.
func (s Status) Title() string {
	if t, ok := laneTitles[s]; ok {
		return t
	}
	return string(s)
}

// Priority orders work inside the to_do lane.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	return PriorityRank(p) > 0
}

// PriorityRank maps a priority to its sort weight: high(3) > medium(2) > low(1).
// Unknown priorities rank 0.
func PriorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Role is the console role carried by an authenticated user.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleProjectManager Role = "project_manager"
	RoleTeamMember     Role = "team_member"
	RoleSalesFinance   Role = "sales_finance"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleProjectManager, RoleTeamMember, RoleSalesFinance:
		return true
	}
	return false
}

// Actor is the user performing an action on the board.
type Actor struct {
	ID       int64  `json:"id" yaml:"id"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Role     Role   `json:"role" yaml:"role"`
}

// Project groups tasks and names the manager responsible for them.
type Project struct {
	ID               int64           `json:"id" yaml:"id"`
	Name             string          `json:"name" yaml:"name"`
	Description      string          `json:"description" yaml:"description,omitempty"`
	ProjectManagerID int64           `json:"project_manager_id" yaml:"project_manager_id"`
	Members          []ProjectMember `json:"members,omitempty" yaml:"members,omitempty"`
	CreatedAt        time.Time       `json:"created_at" yaml:"-"`
	UpdatedAt        time.Time       `json:"updated_at" yaml:"-"`
}

// HasMember reports whether userID is on the project's team.
func (p Project) HasMember(userID int64) bool {
	for _, m := range p.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// ProjectMember places a user on a project's team. Only members log hours on
// the project's tasks or get tasks assigned.
type ProjectMember struct {
	ProjectID  int64     `json:"project_id" yaml:"-"`
	UserID     int64     `json:"user_id" yaml:"user_id"`
	Username   string    `json:"username,omitempty" yaml:"username,omitempty"`
	AssignedAt time.Time `json:"assigned_at" yaml:"-"`
}

// Task represents a single card on the board.
type Task struct {
	ID               int64      `json:"id" yaml:"id"`
	ProjectID        int64      `json:"project_id" yaml:"project_id"`
	Title            string     `json:"title" yaml:"title"`
	Description      string     `json:"description" yaml:"description,omitempty"`
	Status           Status     `json:"status" yaml:"status"`
	Priority         Priority   `json:"priority" yaml:"priority"`
	DueDate          *time.Time `json:"due_date" yaml:"due_date,omitempty"`
	AssignedTo       *int64     `json:"assigned_to" yaml:"assigned_to,omitempty"`
	CreatedBy        int64      `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	LastModifiedBy   int64      `json:"last_modified_by,omitempty" yaml:"last_modified_by,omitempty"`
	TotalHoursWorked float64    `json:"total_hours_worked" yaml:"total_hours_worked"`
	EstimatedHours   *float64   `json:"estimated_hours,omitempty" yaml:"estimated_hours,omitempty"`
	CreatedAt        time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt        time.Time  `json:"updated_at" yaml:"-"`
}

// IsAssignedTo reports whether the task is assigned to the given user.
func (t Task) IsAssignedTo(userID int64) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// HourLogEntry is one immutable line of the hour ledger.
type HourLogEntry struct {
	ID          int64     `json:"id" yaml:"id"`
	TaskID      int64     `json:"task_id" yaml:"task_id"`
	UserID      int64     `json:"user_id" yaml:"user_id"`
	ProjectID   int64     `json:"project_id" yaml:"project_id"`
	Hours       float64   `json:"hours" yaml:"hours"`
	Date        string    `json:"date" yaml:"date"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	IsBillable  bool      `json:"is_billable" yaml:"is_billable"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
}

// HourLogResult is what the backend answers after appending a ledger entry.
// Task carries the recomputed total_hours_worked.
type HourLogResult struct {
	Task        Task    `json:"task"`
	HoursLogged float64 `json:"hoursLogged"`
}
