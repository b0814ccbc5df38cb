package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"taskboard/internal/models"
)

// Store wraps access to the SQLite database and exposes high level helpers.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL UNIQUE,
            description TEXT NOT NULL DEFAULT '',
            project_manager_id INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS tasks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER NOT NULL,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'to_do'
                CHECK (status IN ('to_do', 'in_progress', 'approval', 'completed')),
            priority TEXT NOT NULL DEFAULT 'medium'
                CHECK (priority IN ('low', 'medium', 'high')),
            due_date DATETIME,
            assigned_to INTEGER,
            created_by INTEGER NOT NULL DEFAULT 0,
            last_modified_by INTEGER NOT NULL DEFAULT 0,
            estimated_hours REAL,
            position INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
		`CREATE TABLE IF NOT EXISTS timesheets (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_id INTEGER NOT NULL,
            user_id INTEGER NOT NULL,
            project_id INTEGER NOT NULL,
            hours REAL NOT NULL CHECK (hours > 0 AND hours <= 24),
            date TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            is_billable INTEGER NOT NULL DEFAULT 1,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(task_id) REFERENCES tasks(id)
        );`,
		`CREATE TABLE IF NOT EXISTS project_members (
            project_id INTEGER NOT NULL,
            user_id INTEGER NOT NULL,
            username TEXT NOT NULL DEFAULT '',
            assigned_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY(project_id, user_id),
            FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project_status ON tasks(project_id, status);`,
		`CREATE INDEX IF NOT EXISTS idx_timesheets_task ON timesheets(task_id);`,
		`CREATE TRIGGER IF NOT EXISTS trg_projects_updated
            AFTER UPDATE ON projects
            FOR EACH ROW BEGIN
                UPDATE projects SET updated_at = CURRENT_TIMESTAMP WHERE id = OLD.id;
            END;`,
		`CREATE TRIGGER IF NOT EXISTS trg_tasks_updated
            AFTER UPDATE ON tasks
            FOR EACH ROW BEGIN
                UPDATE tasks SET updated_at = CURRENT_TIMESTAMP WHERE id = OLD.id;
            END;`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

const projectColumns = `id, name, description, project_manager_id, created_at, updated_at`

// ListProjects retrieves all projects ordered by creation date.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.ProjectManagerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CreateProject persists a new project managed by p.ProjectManagerID.
func (s *Store) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return models.Project{}, &models.ValidationError{Field: "name", Message: "project name must not be empty"}
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO projects(name, description, project_manager_id) VALUES(?, ?, ?)`,
		name, strings.TrimSpace(p.Description), p.ProjectManagerID)
	if err != nil {
		return models.Project{}, constraintError("insert project", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Project{}, fmt.Errorf("project id: %w", err)
	}
	return s.GetProject(ctx, id)
}

// GetProject fetches a single project by id along with its team.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	var p models.Project
	err := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.ProjectManagerID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	if p.Members, err = s.members(ctx, id); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// UpdateProject renames a project and reassigns its manager.
func (s *Store) UpdateProject(ctx context.Context, id int64, p models.Project) (models.Project, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return models.Project{}, &models.ValidationError{Field: "name", Message: "project name must not be empty"}
	}

	res, err := s.db.ExecContext(ctx, `UPDATE projects SET name = ?, description = ?, project_manager_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, strings.TrimSpace(p.Description), p.ProjectManagerID, id)
	if err != nil {
		return models.Project{}, constraintError("update project", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Project{}, err
	}
	if affected == 0 {
		return models.Project{}, fmt.Errorf("project %d: %w", id, models.ErrNotFound)
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project along with its tasks. Tasks that carry
// timesheet entries block the deletion.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return constraintError("delete project", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("project %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// ListMembers returns the team of a project in the order members were added.
func (s *Store) ListMembers(ctx context.Context, projectID int64) ([]models.ProjectMember, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.members(ctx, projectID)
}

func (s *Store) members(ctx context.Context, projectID int64) ([]models.ProjectMember, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT project_id, user_id, username, assigned_at FROM project_members
        WHERE project_id = ? ORDER BY assigned_at ASC, user_id ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []models.ProjectMember{}
	for rows.Next() {
		var m models.ProjectMember
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Username, &m.AssignedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// AddMember puts a user on a project's team. Adding an existing member is a conflict.
func (s *Store) AddMember(ctx context.Context, projectID int64, req models.AddMemberRequest) (models.ProjectMember, error) {
	if err := req.Validate(); err != nil {
		return models.ProjectMember{}, err
	}
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return models.ProjectMember{}, err
	}

	if _, err := s.db.ExecContext(ctx, `INSERT INTO project_members(project_id, user_id, username) VALUES(?, ?, ?)`,
		projectID, req.UserID, req.Username); err != nil {
		return models.ProjectMember{}, constraintError("add member", err)
	}

	var m models.ProjectMember
	err := s.db.QueryRowContext(ctx, `SELECT project_id, user_id, username, assigned_at FROM project_members
        WHERE project_id = ? AND user_id = ?`, projectID, req.UserID).
		Scan(&m.ProjectID, &m.UserID, &m.Username, &m.AssignedAt)
	if err != nil {
		return models.ProjectMember{}, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// RemoveMember takes a user off a project's team. Tasks assigned to the user
// keep their assignee.
func (s *Store) RemoveMember(ctx context.Context, projectID, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM project_members WHERE project_id = ? AND user_id = ?`, projectID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("member %d of project %d: %w", userID, projectID, models.ErrNotFound)
	}
	return nil
}

const taskColumns = `t.id, t.project_id, t.title, t.description, t.status, t.priority, t.due_date,
        t.assigned_to, t.created_by, t.last_modified_by, t.estimated_hours,
        COALESCE((SELECT SUM(h.hours) FROM timesheets h WHERE h.task_id = t.id), 0),
        t.created_at, t.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (models.Task, error) {
	var (
		t        models.Task
		due      sql.NullTime
		assignee sql.NullInt64
		estimate sql.NullFloat64
	)
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority, &due,
		&assignee, &t.CreatedBy, &t.LastModifiedBy, &estimate, &t.TotalHoursWorked, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}
	if due.Valid {
		v := due.Time
		t.DueDate = &v
	}
	if assignee.Valid {
		v := assignee.Int64
		t.AssignedTo = &v
	}
	if estimate.Valid {
		v := estimate.Float64
		t.EstimatedHours = &v
	}
	return t, nil
}

// ListTasks returns tasks for the given project ordered by status and position.
func (s *Store) ListTasks(ctx context.Context, projectID int64) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+`
        FROM tasks t WHERE t.project_id = ? ORDER BY t.status, t.position, t.id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CreateTask inserts a new task into the to_do lane of its project.
func (s *Store) CreateTask(ctx context.Context, req models.CreateTaskRequest, createdBy int64) (models.Task, error) {
	if err := req.Validate(); err != nil {
		return models.Task{}, err
	}
	if _, err := s.GetProject(ctx, req.ProjectID); err != nil {
		return models.Task{}, err
	}

	pos, err := s.nextPosition(ctx, req.ProjectID, models.StatusToDo)
	if err != nil {
		return models.Task{}, err
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO tasks(project_id, title, description, status, priority, due_date, assigned_to, created_by, last_modified_by, estimated_hours, position)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ProjectID, req.Title, req.Description, models.StatusToDo, req.Priority,
		nullTime(req.DueDate), nullInt(req.AssignedTo), createdBy, createdBy, nullFloat(req.EstimatedHours), pos)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, fmt.Errorf("task id: %w", err)
	}
	return s.GetTask(ctx, id)
}

// GetTask retrieves a task by id with its derived hour total.
func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// UpdateTask applies the non-nil fields of req and moves the task to the end
// of its new lane when the status changes.
func (s *Store) UpdateTask(ctx context.Context, id int64, req models.UpdateTaskRequest, modifiedBy int64) (models.Task, error) {
	if err := req.Validate(); err != nil {
		return models.Task{}, err
	}
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}

	next := current
	if req.Title != nil {
		next.Title = *req.Title
	}
	if req.Description != nil {
		next.Description = *req.Description
	}
	if req.Status != nil {
		next.Status = *req.Status
	}
	if req.Priority != nil {
		next.Priority = *req.Priority
	}
	if req.DueDate != nil {
		next.DueDate = req.DueDate
	}
	if req.AssignedTo != nil {
		next.AssignedTo = req.AssignedTo
	}
	if req.EstimatedHours != nil {
		next.EstimatedHours = req.EstimatedHours
	}

	query := `UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, due_date = ?, assigned_to = ?,
        estimated_hours = ?, last_modified_by = ?, updated_at = CURRENT_TIMESTAMP`
	args := []any{next.Title, next.Description, next.Status, next.Priority, nullTime(next.DueDate),
		nullInt(next.AssignedTo), nullFloat(next.EstimatedHours), modifiedBy}
	if next.Status != current.Status {
		pos, err := s.nextPosition(ctx, current.ProjectID, next.Status)
		if err != nil {
			return models.Task{}, err
		}
		query += `, position = ?`
		args = append(args, pos)
	}
	args = append(args, id)

	if _, err := s.db.ExecContext(ctx, query+` WHERE id = ?`, args...); err != nil {
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes a task by id. A task referenced by timesheet entries is
// kept and ErrConflict is returned.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	var entries int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM timesheets WHERE task_id = ?`, id).Scan(&entries); err != nil {
		return fmt.Errorf("count timesheets: %w", err)
	}
	if entries > 0 {
		return fmt.Errorf("task %d has %d timesheet entries: %w", id, entries, models.ErrConflict)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return constraintError("delete task", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("task %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// LogHours appends a timesheet entry and returns the task with its new total.
func (s *Store) LogHours(ctx context.Context, e models.HourLogEntry) (models.Task, error) {
	if err := models.ValidateHours(e.Hours); err != nil {
		return models.Task{}, err
	}
	task, err := s.GetTask(ctx, e.TaskID)
	if err != nil {
		return models.Task{}, err
	}
	if e.Date == "" {
		e.Date = time.Now().Format("2006-01-02")
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO timesheets(task_id, user_id, project_id, hours, date, description, is_billable) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		e.TaskID, e.UserID, task.ProjectID, e.Hours, e.Date, strings.TrimSpace(e.Description), e.IsBillable)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert timesheet: %w", err)
	}
	return s.GetTask(ctx, e.TaskID)
}

// ListHours returns the ledger of a task, oldest first.
func (s *Store) ListHours(ctx context.Context, taskID int64) ([]models.HourLogEntry, error) {
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, task_id, user_id, project_id, hours, date, description, is_billable, created_at
        FROM timesheets WHERE task_id = ? ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list hours: %w", err)
	}
	defer rows.Close()

	entries := []models.HourLogEntry{}
	for rows.Next() {
		var e models.HourLogEntry
		if err := rows.Scan(&e.ID, &e.TaskID, &e.UserID, &e.ProjectID, &e.Hours, &e.Date, &e.Description, &e.IsBillable, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan timesheet: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) nextPosition(ctx context.Context, projectID int64, status models.Status) (int64, error) {
	var position sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(position) FROM tasks WHERE project_id = ? AND status = ?`, projectID, status).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("select position: %w", err)
	}
	if position.Valid {
		return position.Int64 + 1, nil
	}
	return 0, nil
}

// constraintError maps sqlite constraint violations onto ErrConflict.
func constraintError(op string, err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%s: %v: %w", op, err, models.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
