package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"taskboard/internal/board"
	"taskboard/internal/metrics"
	"taskboard/internal/models"
	"taskboard/internal/storage/sqlite"
)

// Options configures the backend.
type Options struct {
	Logger *slog.Logger
	// Secret verifies the HS256 bearer tokens.
	Secret      []byte
	CORSOrigins []string
	// GateReopen denies moving completed tasks back for actors who may not complete them.
	GateReopen bool
	// Registry receives the request and domain collectors and backs /metrics.
	Registry *prometheus.Registry
}

// Server provides HTTP handlers for the task board backend.
type Server struct {
	engine    *gin.Engine
	store     *sqlite.Store
	logger    *slog.Logger
	secret    []byte
	authority board.Authority
	metrics   *metrics.Metrics
	registry  *prometheus.Registry
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz", "/metrics"))
	router.Use(corsMiddleware(opts.CORSOrigins))

	srv := &Server{
		engine:    router,
		store:     store,
		logger:    logger,
		secret:    opts.Secret,
		authority: board.Authority{GateReopen: opts.GateReopen},
		metrics:   metrics.New(registry),
		registry:  registry,
	}
	router.Use(srv.observeRequests())

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API handlers together.
func (s *Server) registerRoutes() {
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler(s.registry)))

	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		authed := api.Group("", s.requireActor())

		projects := authed.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.GET(":id", s.handleGetProject)
			projects.PUT(":id", s.handleUpdateProject)
			projects.DELETE(":id", s.handleDeleteProject)
			projects.GET(":id/tasks", s.handleListTasks)
			projects.GET(":id/members", s.handleListMembers)
			projects.POST(":id/members", s.handleAddMember)
			projects.DELETE(":id/members/:userId", s.handleRemoveMember)
		}

		tasks := authed.Group("/tasks")
		{
			tasks.POST("", s.handleCreateTask)
			tasks.PUT(":id", s.handleUpdateTask)
			tasks.DELETE(":id", s.handleDeleteTask)
			tasks.POST(":id/log-hours", s.handleLogHours)
			tasks.GET(":id/hours", s.handleListHours)
		}
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		return cors.Default()
	}
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	cfg.AddAllowHeaders("Authorization")
	return cors.New(cfg)
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// statusFor maps the failure taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch models.Categorize(err) {
	case models.CategoryValidation:
		return http.StatusBadRequest
	case models.CategoryForbidden:
		return http.StatusForbidden
	case models.CategoryNotFound:
		return http.StatusNotFound
	case models.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the error and returns a JSON payload with the mapped status.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	attrs := []any{slog.String("path", c.FullPath()), slog.Int("status", status), slog.String("error", err.Error())}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", attrs...)
	} else {
		s.logger.Warn("request rejected", attrs...)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// bindJSON decodes the body into dst, reporting malformed input as a validation error.
func (s *Server) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.respondError(c, &models.ValidationError{Field: "body", Message: err.Error()})
		return false
	}
	return true
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

var errUnauthenticated = fmt.Errorf("unauthenticated: %w", models.ErrForbidden)
