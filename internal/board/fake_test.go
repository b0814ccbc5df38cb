package board

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"taskboard/internal/models"
)

// fakeRemote is an in-memory backend. When hold is set, UpdateTaskStatus
// blocks until a value is sent on release; holdWrites does the same for
// UpdateTask and DeleteTask.
type fakeRemote struct {
	mu       sync.Mutex
	project  models.Project
	tasks    map[int64]models.Task
	order    []int64
	entries  []models.HourLogEntry
	calls    map[string]int
	hold     bool
	release  chan struct{}
	started  chan int64
	failures map[int64]error

	logErr     error
	logTotal   map[int64]float64
	deleteErr  error
	updateErr  error
	createErr  error
	fetchErr   error
	statusHook func(taskID int64, status models.Status)
	holdWrites bool
}

func newFakeRemote(project models.Project, tasks ...models.Task) *fakeRemote {
	f := &fakeRemote{
		project:  project,
		tasks:    make(map[int64]models.Task),
		calls:    make(map[string]int),
		release:  make(chan struct{}),
		started:  make(chan int64, 16),
		failures: make(map[int64]error),
		logTotal: make(map[int64]float64),
	}
	for _, t := range tasks {
		f.tasks[t.ID] = t
		f.order = append(f.order, t.ID)
	}
	return f
}

func (f *fakeRemote) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for op, c := range f.calls {
		if op == "FetchProject" || op == "FetchTasksByProject" || op == "FetchProjectMembers" {
			continue
		}
		n += c
	}
	return n
}

func (f *fakeRemote) FetchProject(_ context.Context, projectID int64) (models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["FetchProject"]++
	if f.fetchErr != nil {
		return models.Project{}, f.fetchErr
	}
	if projectID != f.project.ID {
		return models.Project{}, fmt.Errorf("project %d: %w", projectID, models.ErrNotFound)
	}
	return f.project, nil
}

func (f *fakeRemote) FetchTasksByProject(_ context.Context, _ int64) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["FetchTasksByProject"]++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]models.Task, 0, len(f.order))
	for _, id := range f.order {
		if t, ok := f.tasks[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRemote) UpdateTaskStatus(_ context.Context, taskID int64, status models.Status) (models.Task, error) {
	f.mu.Lock()
	f.calls["UpdateTaskStatus"]++
	hold := f.hold
	hook := f.statusHook
	f.mu.Unlock()

	f.started <- taskID
	if hook != nil {
		hook(taskID, status)
	}
	if hold {
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures[taskID]; err != nil {
		return models.Task{}, err
	}
	t, ok := f.tasks[taskID]
	if !ok {
		return models.Task{}, fmt.Errorf("task %d: %w", taskID, models.ErrNotFound)
	}
	t.Status = status
	f.tasks[taskID] = t
	return t, nil
}

// pause blocks a write while holdWrites is set. Must be called with mu held;
// mu is held again on return.
func (f *fakeRemote) pause(taskID int64) {
	if !f.holdWrites {
		return
	}
	f.mu.Unlock()
	f.started <- taskID
	<-f.release
	f.mu.Lock()
}

func (f *fakeRemote) DeleteTask(_ context.Context, taskID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DeleteTask"]++
	f.pause(taskID)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.tasks, taskID)
	return nil
}

func (f *fakeRemote) LogHours(_ context.Context, taskID int64, hours float64, description string) (models.HourLogResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["LogHours"]++
	if f.logErr != nil {
		return models.HourLogResult{}, f.logErr
	}
	t := f.tasks[taskID]
	if total, ok := f.logTotal[taskID]; ok {
		t.TotalHoursWorked = total
	} else {
		t.TotalHoursWorked += hours
	}
	f.tasks[taskID] = t
	f.entries = append(f.entries, models.HourLogEntry{ID: int64(len(f.entries) + 1), TaskID: taskID, Hours: hours, Description: description})
	return models.HourLogResult{Task: t, HoursLogged: hours}, nil
}

func (f *fakeRemote) FetchHourLog(_ context.Context, taskID int64) ([]models.HourLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["FetchHourLog"]++
	var out []models.HourLogEntry
	for _, e := range f.entries {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRemote) CreateTask(_ context.Context, req models.CreateTaskRequest) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreateTask"]++
	if f.createErr != nil {
		return models.Task{}, f.createErr
	}
	id := int64(1000 + len(f.order))
	t := models.Task{ID: id, ProjectID: req.ProjectID, Title: req.Title, Status: models.StatusToDo, Priority: req.Priority, AssignedTo: req.AssignedTo}
	f.tasks[id] = t
	f.order = append(f.order, id)
	return t, nil
}

func (f *fakeRemote) UpdateTask(_ context.Context, taskID int64, req models.UpdateTaskRequest) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UpdateTask"]++
	f.pause(taskID)
	if f.updateErr != nil {
		return models.Task{}, f.updateErr
	}
	t, ok := f.tasks[taskID]
	if !ok {
		return models.Task{}, models.ErrNotFound
	}
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	if req.DueDate != nil {
		t.DueDate = req.DueDate
	}
	f.tasks[taskID] = t
	return t, nil
}

func (f *fakeRemote) FetchProjectMembers(_ context.Context, projectID int64) ([]models.ProjectMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["FetchProjectMembers"]++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if projectID != f.project.ID {
		return nil, fmt.Errorf("project %d: %w", projectID, models.ErrNotFound)
	}
	return append([]models.ProjectMember(nil), f.project.Members...), nil
}

func (f *fakeRemote) AddProjectMember(_ context.Context, projectID int64, req models.AddMemberRequest) (models.ProjectMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["AddProjectMember"]++
	if f.project.HasMember(req.UserID) {
		return models.ProjectMember{}, fmt.Errorf("member %d: %w", req.UserID, models.ErrConflict)
	}
	m := models.ProjectMember{ProjectID: projectID, UserID: req.UserID, Username: req.Username}
	f.project.Members = append(append([]models.ProjectMember(nil), f.project.Members...), m)
	return m, nil
}

func (f *fakeRemote) RemoveProjectMember(_ context.Context, _ int64, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["RemoveProjectMember"]++
	kept := make([]models.ProjectMember, 0, len(f.project.Members))
	for _, m := range f.project.Members {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(f.project.Members) {
		return fmt.Errorf("member %d: %w", userID, models.ErrNotFound)
	}
	f.project.Members = kept
	return nil
}

// recorder collects notices.
type recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) all() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

func (r *recorder) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

func int64p(v int64) *int64 { return &v }

const (
	projectID  = int64(1)
	managerID  = int64(10)
	memberID   = int64(20)
	outsiderID = int64(21)
)

var testProject = models.Project{
	ID:               projectID,
	Name:             "Website",
	ProjectManagerID: managerID,
	Members:          []models.ProjectMember{{ProjectID: projectID, UserID: memberID, Username: "tm"}},
}

func teamMember() models.Actor { return models.Actor{ID: memberID, Username: "tm", Role: models.RoleTeamMember} }

// outsider is a team member who is not on the project's team.
func outsider() models.Actor { return models.Actor{ID: outsiderID, Username: "ext", Role: models.RoleTeamMember} }

// owningManager is the project's own manager.
func owningManager() models.Actor {
	return models.Actor{ID: managerID, Username: "pm", Role: models.RoleProjectManager}
}

func admin() models.Actor { return models.Actor{ID: 1, Username: "root", Role: models.RoleAdmin} }

func sampleTasks() []models.Task {
	return []models.Task{
		{ID: 42, ProjectID: projectID, Title: "Ship release", Status: models.StatusToDo, Priority: models.PriorityHigh, AssignedTo: int64p(memberID)},
		{ID: 43, ProjectID: projectID, Title: "Write notes", Status: models.StatusToDo, Priority: models.PriorityLow},
		{ID: 7, ProjectID: projectID, Title: "Review PR", Status: models.StatusApproval, Priority: models.PriorityMedium, AssignedTo: int64p(memberID), TotalHoursWorked: 3},
		{ID: 8, ProjectID: projectID, Title: "Fix login", Status: models.StatusInProgress, Priority: models.PriorityMedium},
		{ID: 9, ProjectID: projectID, Title: "Old thing", Status: models.StatusCompleted, Priority: models.PriorityLow},
	}
}

type fixture struct {
	board  *Board
	remote *fakeRemote
	notes  *recorder
}

func newFixture(t *testing.T, actor models.Actor, opts ...func(*Options)) fixture {
	t.Helper()
	remote := newFakeRemote(testProject, sampleTasks()...)
	notes := &recorder{}
	o := Options{
		ProjectID: projectID,
		Actor:     actor,
		Remote:    remote,
		Notifier:  notes,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:     func() time.Time { return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC) },
	}
	for _, fn := range opts {
		fn(&o)
	}
	b, err := New(o)
	require.NoError(t, err)
	require.NoError(t, b.Reload(context.Background()))
	return fixture{board: b, remote: remote, notes: notes}
}

func waitResult(t *testing.T, p *Pending) TransitionResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r, err := p.Wait(ctx)
	require.NoError(t, err)
	return r
}

func dropAt(taskID int64, from Position, to models.Status, index int) Drop {
	return Drop{TaskID: taskID, Source: from, Dest: &Position{Lane: to, Index: index}}
}

func laneIDs(l Lanes, s models.Status) []int64 {
	ids := make([]int64, 0, len(l[s]))
	for _, t := range l[s] {
		ids = append(ids, t.ID)
	}
	return ids
}
