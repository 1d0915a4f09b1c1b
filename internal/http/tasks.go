package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"
)

// TaskCleanupAuditEvents is the task type accepted by RunTask.
const TaskCleanupAuditEvents = "cleanup_audit_events"

// TaskQueue is the part of the task client the API exposes.
type TaskQueue interface {
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
	EnqueueAuditCleanup(retentionDays int) (string, error)
}

// TasksController handles task queue management endpoints.
type TasksController struct {
	queue         TaskQueue
	retentionDays int
	log           logrus.FieldLogger
}

// NewTasksController creates a new TasksController.
func NewTasksController(queue TaskQueue, retentionDays int, log logrus.FieldLogger) *TasksController {
	return &TasksController{
		queue:         queue,
		retentionDays: retentionDays,
		log:           log,
	}
}

// TaskTypeInfo describes an available task type.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue"`
}

// ListTaskTypes handles GET /api/tasks/types
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"task_types": []TaskTypeInfo{
			{
				Type:        TaskCleanupAuditEvents,
				Description: "Delete audit events older than the retention period",
				Queue:       TaskCleanupAuditEvents,
			},
		},
	})
}

// GetTaskStatus handles GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, tc.log, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

// RunTaskRequest is the request body for running a task.
type RunTaskRequest struct {
	// RetentionDays overrides the configured retention for one run
	RetentionDays int `json:"retention_days,omitempty" form:"retention_days" binding:"omitempty,min=1"`
}

// RunTask handles POST /api/tasks/:type/run
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	var req RunTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBind(&req); err != nil {
			respondBadRequest(c, err.Error())
			return
		}
	}

	switch taskType {
	case TaskCleanupAuditEvents:
		days := tc.retentionDays
		if req.RetentionDays > 0 {
			days = req.RetentionDays
		}

		id, err := tc.queue.EnqueueAuditCleanup(days)
		if err != nil {
			respondInternalError(c, tc.log, err, "enqueue task")
			return
		}

		tc.log.WithFields(logrus.Fields{
			"task_id":        id,
			"retention_days": days,
		}).Info("Audit cleanup enqueued on request")

		c.JSON(http.StatusAccepted, gin.H{
			"success": true,
			"task_id": id,
			"type":    taskType,
			"message": "task enqueued",
		})

	default:
		respondBadRequest(c, fmt.Sprintf("unknown task type: %s", taskType))
	}
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
