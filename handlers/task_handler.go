package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/duonguwu/notification-bot/models"
)

type TaskHandler struct {
	db *gorm.DB
}

func NewTaskHandler(db *gorm.DB) *TaskHandler {
	return &TaskHandler{db: db}
}

func (h *TaskHandler) ListTasks(c echo.Context) error {
	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := h.db.Order("created_at DESC")
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if taskName := c.QueryParam("task_name"); taskName != "" {
		query = query.Where("task_name LIKE ?", "%"+taskName+"%")
	}

	var tasks []models.Task
	if err := query.Offset(skip).Limit(limit).Find(&tasks).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch tasks"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tasks": tasks,
		"total": len(tasks),
	})
}

func (h *TaskHandler) GetTask(c echo.Context) error {
	jobID := c.Param("jobId")
	var task models.Task
	if err := h.db.Where("job_id = ?", jobID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database error"})
	}
	return c.JSON(http.StatusOK, task)
}

// CancelTask requests cancellation of a pending or running task. The
// record goes terminal immediately; an in-flight job loop is not
// interrupted and may overwrite this with its own terminal status.
func (h *TaskHandler) CancelTask(c echo.Context) error {
	jobID := c.Param("jobId")
	var task models.Task
	if err := h.db.Where("job_id = ?", jobID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database error"})
	}

	if err := task.Cancel(); err != nil {
		var conflict *models.StateConflictError
		if errors.As(err, &conflict) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": conflict.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to cancel task"})
	}
	if err := h.db.Save(&task).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to cancel task"})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Task cancelled successfully",
		"job_id":  jobID,
	})
}

func (h *TaskHandler) GetStats(c echo.Context) error {
	countByStatus := func(status string) int64 {
		var n int64
		h.db.Model(&models.Task{}).Where("status = ?", status).Count(&n)
		return n
	}

	var total int64
	h.db.Model(&models.Task{}).Count(&total)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"total_tasks":     total,
		"pending_tasks":   countByStatus(models.TaskStatusPending),
		"running_tasks":   countByStatus(models.TaskStatusRunning),
		"completed_tasks": countByStatus(models.TaskStatusCompleted),
		"failed_tasks":    countByStatus(models.TaskStatusFailed),
		"cancelled_tasks": countByStatus(models.TaskStatusCancelled),
	})
}
