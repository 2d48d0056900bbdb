package transport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ds124wfegd/WB_L3/catering/pkg/queue"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxDLQPage = 500

// AdminHandler exposes the dead letter queue of the task queue.
type AdminHandler struct {
	dlq queue.DLQHandler
}

func NewAdminHandler(dlq queue.DLQHandler) *AdminHandler {
	return &AdminHandler{dlq: dlq}
}

type dlqView struct {
	Stats *queue.DLQStats     `json:"stats"`
	Tasks []*queue.FailedTask `json:"tasks"`
}

// ListFailedTasks returns the DLQ summary and its newest entries.
func (h *AdminHandler) ListFailedTasks(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxDLQPage {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be between 1 and 500", Field: "limit"})
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	stats, err := h.dlq.GetDLQStats(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	tasks, err := h.dlq.GetFailedTasks(ctx, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dlqView{Stats: stats, Tasks: tasks})
}

func (h *AdminHandler) RequeueFailedTask(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	taskID := c.Param("task_id")

	if err := h.dlq.RequeueFailedTask(c.Request.Context(), taskID); err != nil {
		if errors.Is(err, queue.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		respondError(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"task_id": taskID,
		"actor":   actorID,
	}).Info("Failed task requeued")
	respond(c, http.StatusAccepted, gin.H{"task_id": taskID})
}
