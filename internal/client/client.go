// Package client binds the board's remote operations to the REST backend.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"taskboard/internal/auth"
	"taskboard/internal/board"
	"taskboard/internal/models"
)

var _ board.Remote = (*Client)(nil)

// APIError is a non-2xx answer from the backend. It unwraps to the failure
// category the status code stands for.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

// Unwrap maps the status code onto the shared error taxonomy.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &models.ValidationError{Message: e.Message}
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.ErrForbidden
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusConflict:
		return models.ErrConflict
	default:
		return models.ErrNetwork
	}
}

// Client talks JSON to the backend with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// New returns a client for the backend at baseURL.
func New(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Actor returns the user named by the client's token.
func (c *Client) Actor() (models.Actor, error) {
	return auth.Peek(c.token)
}

// ListProjects returns every project on the backend.
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var out struct {
		Projects []models.Project `json:"projects"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

// FetchProject loads one project.
func (c *Client) FetchProject(ctx context.Context, projectID int64) (models.Project, error) {
	var out struct {
		Project models.Project `json:"project"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d", projectID), nil, &out); err != nil {
		return models.Project{}, err
	}
	return out.Project, nil
}

// FetchTasksByProject loads every task of a project.
func (c *Client) FetchTasksByProject(ctx context.Context, projectID int64) ([]models.Task, error) {
	var out struct {
		Tasks []models.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d/tasks", projectID), nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// UpdateTaskStatus moves a task to another lane.
func (c *Client) UpdateTaskStatus(ctx context.Context, taskID int64, status models.Status) (models.Task, error) {
	return c.UpdateTask(ctx, taskID, models.UpdateTaskRequest{Status: &status})
}

// UpdateTask applies a partial update.
func (c *Client) UpdateTask(ctx context.Context, taskID int64, req models.UpdateTaskRequest) (models.Task, error) {
	var out struct {
		Task models.Task `json:"task"`
	}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/tasks/%d", taskID), req, &out); err != nil {
		return models.Task{}, err
	}
	return out.Task, nil
}

// CreateTask adds a task to a project.
func (c *Client) CreateTask(ctx context.Context, req models.CreateTaskRequest) (models.Task, error) {
	var out struct {
		Task models.Task `json:"task"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/tasks", req, &out); err != nil {
		return models.Task{}, err
	}
	return out.Task, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", taskID), nil, nil)
}

// LogHours appends a ledger entry for the token's user.
func (c *Client) LogHours(ctx context.Context, taskID int64, hours float64, description string) (models.HourLogResult, error) {
	var out models.HourLogResult
	body := models.LogHoursRequest{Hours: hours, Description: description}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/tasks/%d/log-hours", taskID), body, &out); err != nil {
		return models.HourLogResult{}, err
	}
	return out, nil
}

// FetchHourLog reads the ledger of a task.
func (c *Client) FetchHourLog(ctx context.Context, taskID int64) ([]models.HourLogEntry, error) {
	var out struct {
		Entries []models.HourLogEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/%d/hours", taskID), nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// FetchProjectMembers loads the team of a project.
func (c *Client) FetchProjectMembers(ctx context.Context, projectID int64) ([]models.ProjectMember, error) {
	var out struct {
		Members []models.ProjectMember `json:"members"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d/members", projectID), nil, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

// AddProjectMember puts a user on a project's team.
func (c *Client) AddProjectMember(ctx context.Context, projectID int64, req models.AddMemberRequest) (models.ProjectMember, error) {
	var out struct {
		Member models.ProjectMember `json:"member"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/projects/%d/members", projectID), req, &out); err != nil {
		return models.ProjectMember{}, err
	}
	return out.Member, nil
}

// RemoveProjectMember takes a user off a project's team.
func (c *Client) RemoveProjectMember(ctx context.Context, projectID, userID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/projects/%d/members/%d", projectID, userID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("request failed", slog.String("method", method), slog.String("path", path), slog.String("error", err.Error()))
		return fmt.Errorf("%s %s: %v: %w", method, path, err, models.ErrNetwork)
	}
	defer resp.Body.Close()
	c.logger.Debug("request done", slog.String("method", method), slog.String("path", path),
		slog.Int("status", resp.StatusCode), slog.Duration("took", time.Since(start)))

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(method, path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %v: %w", method, path, err, models.ErrNetwork)
	}
	return nil
}

func decodeError(method, path string, resp *http.Response) error {
	apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	}
	return apiErr
}
