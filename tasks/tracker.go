package tasks

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/duonguwu/notification-bot/models"
)

// Job names as they travel in queue envelopes.
const (
	JobImportCustomers  = "import_customers"
	JobSendNotification = "send_notification"
)

// loadTask resolves the Task record owning a job. A missing record is
// a hard precondition failure: runners never create their own Task.
func loadTask(db *gorm.DB, jobID string) (*models.Task, error) {
	var task models.Task
	if err := db.Where("job_id = ?", jobID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task %s not found", jobID)
		}
		return nil, err
	}
	return &task, nil
}

// failTask records a terminal failure on the task, best-effort.
func failTask(db *gorm.DB, task *models.Task, err error) {
	task.Fail(err.Error())
	db.Save(task)
}
