package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"taskboard/internal/auth"
	"taskboard/internal/models"
)

const actorKey = "actor"

// requireActor verifies the bearer token and stores the actor it names.
func (s *Server) requireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		actor, err := auth.Parse(s.secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token is expired or invalid: " + err.Error()})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// actorFrom returns the actor stored by requireActor.
func actorFrom(c *gin.Context) (models.Actor, error) {
	v, ok := c.Get(actorKey)
	if !ok {
		return models.Actor{}, errUnauthenticated
	}
	actor, ok := v.(models.Actor)
	if !ok {
		return models.Actor{}, errUnauthenticated
	}
	return actor, nil
}

// observeRequests records the latency of every routed request.
func (s *Server) observeRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
