// Package server exposes the engine over HTTP: message submission, task
// inspection, requeue triggers, and system status.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jbplatform/relay/internal/journal"
	"github.com/jbplatform/relay/internal/orchestrator"
	"github.com/jbplatform/relay/pkg/logger"
)

// Handler bundles the dependencies the API endpoints need.
type Handler struct {
	engine  *orchestrator.Engine
	journal *journal.Journal // nil when journaling is disabled
	log     *logger.Logger
}

// NewHandler creates a Handler. journal may be nil.
func NewHandler(engine *orchestrator.Engine, j *journal.Journal) *Handler {
	return &Handler{
		engine:  engine,
		journal: j,
		log:     logger.New("server"),
	}
}

// SetupRouter configures and returns a gin engine with all routes mounted.
func SetupRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.log))

	r.GET("/health", h.Health)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/messages", h.SubmitMessage)
		apiV1.GET("/tasks/:id", h.GetTask)
		apiV1.GET("/tasks/:id/history", h.GetTaskHistory)
		apiV1.POST("/tasks/:id/requeue", h.RequeueTask)
		apiV1.GET("/status", h.Status)
		apiV1.GET("/system", h.System)
	}

	return r
}

// requestLogger logs one line per request with method, path, status, and
// latency.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithField("method", c.Request.Method).
			WithField("path", c.Request.URL.Path).
			WithField("status", c.Writer.Status()).
			WithField("latency", time.Since(start).String()).
			Debug("request handled")
	}
}

// Health reports liveness and whether the dispatch loop is running.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"running": h.engine.QueueStatus().Running,
	})
}
