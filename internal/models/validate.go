package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// MaxHoursPerEntry bounds a single ledger entry.
const MaxHoursPerEntry = 24.0

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateTaskRequest is the payload of the create form.
type CreateTaskRequest struct {
	ProjectID      int64      `json:"project_id" validate:"required,gt=0"`
	Title          string     `json:"title" validate:"required,max=255"`
	Description    string     `json:"description,omitempty" validate:"max=2000"`
	Priority       Priority   `json:"priority" validate:"required,oneof=low medium high"`
	AssignedTo     *int64     `json:"assigned_to,omitempty" validate:"omitempty,gt=0"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	EstimatedHours *float64   `json:"estimated_hours,omitempty" validate:"omitempty,gt=0"`
}

// Validate trims the title and checks the payload.
func (r *CreateTaskRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	return structError(validate.Struct(r))
}

// UpdateTaskRequest is a partial update; nil fields are left untouched.
type UpdateTaskRequest struct {
	Title          *string    `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description    *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	Status         *Status    `json:"status,omitempty" validate:"omitempty,oneof=to_do in_progress approval completed"`
	Priority       *Priority  `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	AssignedTo     *int64     `json:"assigned_to,omitempty" validate:"omitempty,gt=0"`
	EstimatedHours *float64   `json:"estimated_hours,omitempty" validate:"omitempty,gt=0"`
}

// Validate trims text fields and checks the payload.
func (r *UpdateTaskRequest) Validate() error {
	if r.Title != nil {
		t := strings.TrimSpace(*r.Title)
		r.Title = &t
	}
	if r.Description != nil {
		d := strings.TrimSpace(*r.Description)
		r.Description = &d
	}
	return structError(validate.Struct(r))
}

// IsEmpty reports whether the update changes nothing.
func (r UpdateTaskRequest) IsEmpty() bool {
	return r.Title == nil && r.Description == nil && r.Status == nil && r.Priority == nil &&
		r.DueDate == nil && r.AssignedTo == nil && r.EstimatedHours == nil
}

// IsStatusOnly reports whether the update is a bare lane move.
func (r UpdateTaskRequest) IsStatusOnly() bool {
	return r.Status != nil && r.Title == nil && r.Description == nil && r.Priority == nil &&
		r.DueDate == nil && r.AssignedTo == nil && r.EstimatedHours == nil
}

// LogHoursRequest is the body of a ledger append.
type LogHoursRequest struct {
	Hours       float64 `json:"hours"`
	Description string  `json:"description,omitempty"`
	Date        string  `json:"date,omitempty"`
	IsBillable  *bool   `json:"is_billable,omitempty"`
}

// AddMemberRequest is the body of POST /api/projects/:id/members.
type AddMemberRequest struct {
	UserID   int64  `json:"user_id" validate:"required,gt=0"`
	Username string `json:"username,omitempty" validate:"max=255"`
}

// Validate checks the payload.
func (r *AddMemberRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	return structError(validate.Struct(r))
}

// ValidateAssignee rejects assigning a task to someone outside the project's team.
func ValidateAssignee(project Project, assignedTo *int64) error {
	if assignedTo == nil || project.HasMember(*assignedTo) {
		return nil
	}
	return &ValidationError{Field: "assigned_to", Message: fmt.Sprintf("user %d is not a member of this project", *assignedTo)}
}

// ValidateHours checks the per-entry bound shared by client and backend.
func ValidateHours(hours float64) error {
	if !(hours > 0) {
		return &ValidationError{Field: "hours", Message: "hours must be a positive number"}
	}
	if hours > MaxHoursPerEntry {
		return &ValidationError{Field: "hours", Message: fmt.Sprintf("hours must not exceed %g per entry", MaxHoursPerEntry)}
	}
	return nil
}

// ValidateHourEntry checks a ledger entry the actor wants to append to task.
// Hours are logged only against tasks assigned to the actor.
func ValidateHourEntry(actor Actor, task Task, hours float64) error {
	if err := ValidateHours(hours); err != nil {
		return err
	}
	if !task.IsAssignedTo(actor.ID) {
		return &ValidationError{Field: "task", Message: "hours can only be logged on tasks assigned to you"}
	}
	return nil
}

// CombineDueDate joins a YYYY-MM-DD date and an optional HH:MM time in loc.
// Without a time the deadline is the last second of that day.
func CombineDueDate(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "due_date", Message: "use YYYY-MM-DD"}
	}
	if strings.TrimSpace(clock) == "" {
		return day.Add(23*time.Hour + 59*time.Minute + 59*time.Second), nil
	}
	hm, err := time.Parse(clockLayout, strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, &ValidationError{Field: "due_time", Message: "use HH:MM"}
	}
	return day.Add(time.Duration(hm.Hour())*time.Hour + time.Duration(hm.Minute())*time.Minute), nil
}

// ValidateDueDate rejects an edited deadline that already passed at now.
func ValidateDueDate(due, now time.Time) error {
	if due.Before(now) {
		return &ValidationError{Field: "due_date", Message: "due date and time cannot be in the past"}
	}
	return nil
}

// ValidateCreateDueDate rejects a new task's deadline on a day before now's day.
func ValidateCreateDueDate(due, now time.Time) error {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if due.Before(today) {
		return &ValidationError{Field: "due_date", Message: "due date cannot be in the past"}
	}
	return nil
}

func structError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: fe.Field(), Message: describeTag(fe)}
	}
	return &ValidationError{Message: err.Error()}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must not be empty"
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "is invalid"
	}
}
