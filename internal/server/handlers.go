package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jbplatform/relay/internal/orchestrator"
	"github.com/jbplatform/relay/pkg/models"
)

// SubmitMessageRequest is the JSON body for message submission.
type SubmitMessageRequest struct {
	ID             string         `json:"id"`
	Channel        models.Channel `json:"channel" binding:"required"`
	From           string         `json:"from" binding:"required"`
	FromName       string         `json:"from_name"`
	Subject        string         `json:"subject"`
	Body           string         `json:"body" binding:"required"`
	Timestamp      time.Time      `json:"timestamp"`
	PropertyID     string         `json:"property_id"`
	ContactID      string         `json:"contact_id"`
	ConversationID string         `json:"conversation_id"`
}

// SubmitMessage accepts an inbound message and answers with the
// submission receipt. The task proceeds asynchronously; 202 is the only
// success status here.
func (h *Handler) SubmitMessage(c *gin.Context) {
	var req SubmitMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Channel.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown channel: " + string(req.Channel)})
		return
	}

	msg := models.InboundMessage{
		ID:             req.ID,
		Channel:        req.Channel,
		From:           req.From,
		FromName:       req.FromName,
		Subject:        req.Subject,
		Body:           req.Body,
		Timestamp:      req.Timestamp,
		PropertyID:     req.PropertyID,
		ContactID:      req.ContactID,
		ConversationID: req.ConversationID,
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()[:8]
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	receipt, err := h.engine.Submit(c.Request.Context(), msg)
	if err != nil {
		h.log.WithError(err).Error("message submission failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, receipt)
}

// GetTask returns one task by id, wherever it currently lives.
func (h *Handler) GetTask(c *gin.Context) {
	task, err := h.engine.GetTask(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

// GetTaskHistory returns the journaled event history for one task.
func (h *Handler) GetTaskHistory(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "journal is disabled"})
		return
	}

	id := c.Param("id")
	history, err := h.journal.TaskHistory(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(history) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no events for task " + id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_id": id, "events": history})
}

// RequeueTask is the external trigger that puts a parked task back into
// its priority queue.
func (h *Handler) RequeueTask(c *gin.Context) {
	id := c.Param("id")
	err := h.engine.Requeue(id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"task_id": id, "status": string(models.TaskStatusPending)})
	case errors.Is(err, orchestrator.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, orchestrator.ErrNotParked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// Status returns the queue-level view of the engine.
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.QueueStatus())
}

// System returns per-worker processing metrics.
func (h *Handler) System(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.SystemStatus())
}
