package models

import (
	"fmt"
	"time"
)

const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
	TaskStatusCancelled = "cancelled"
)

// StateConflictError is returned when a task transition is requested
// from a state that does not permit it.
type StateConflictError struct {
	Status string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot cancel task with status: %s", e.Status)
}

// Task tracks one dispatched background job. It is the sole source of
// truth for job observability and cancellation.
type Task struct {
	ID             uint    `json:"id" gorm:"primaryKey"`
	JobID          string  `json:"job_id" gorm:"uniqueIndex;not null"`
	TaskName       string  `json:"task_name" gorm:"index;not null"`
	Status         string  `json:"status" gorm:"index;not null"` // pending, running, completed, failed, cancelled
	Progress       float64 `json:"progress"`                     // 0.0 to 1.0
	TotalItems     int     `json:"total_items"`
	ProcessedItems int     `json:"processed_items"`
	FailedItems    int     `json:"failed_items"`

	UserID       uint           `json:"user_id"`
	Parameters   map[string]any `json:"parameters" gorm:"serializer:json"`
	Result       map[string]any `json:"result" gorm:"serializer:json"`
	ErrorMessage string         `json:"error_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries" gorm:"default:3"`
}

// NewTask builds a pending task record for a freshly enqueued job,
// recording the dispatch parameters verbatim.
func NewTask(jobID, taskName string, userID uint, parameters map[string]any) *Task {
	return &Task{
		JobID:      jobID,
		TaskName:   taskName,
		Status:     TaskStatusPending,
		UserID:     userID,
		Parameters: parameters,
		MaxRetries: 3,
	}
}

// Start marks the task running and records the start timestamp.
func (t *Task) Start() {
	now := time.Now()
	t.Status = TaskStatusRunning
	t.StartedAt = &now
}

// Complete marks the task terminal-success: progress is forced to 1.0
// and the structured result payload is recorded.
func (t *Task) Complete(result map[string]any) {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.Progress = 1.0
	t.Result = result
	t.CompletedAt = &now
}

// Fail marks the task terminal-failure with the captured message.
func (t *Task) Fail(msg string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.ErrorMessage = msg
	t.CompletedAt = &now
}

// Cancel transitions a pending or running task to cancelled. A task
// already in a terminal state returns a StateConflictError naming its
// current status. Cancellation does not interrupt an in-flight job
// loop; a job mid-execution may later overwrite this status with its
// own terminal write.
func (t *Task) Cancel() error {
	if t.Status != TaskStatusPending && t.Status != TaskStatusRunning {
		return &StateConflictError{Status: t.Status}
	}
	now := time.Now()
	t.Status = TaskStatusCancelled
	t.CompletedAt = &now
	return nil
}

// SuccessRate formats processed/total as a percentage for result payloads.
func (t *Task) SuccessRate() string {
	if t.TotalItems == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(t.ProcessedItems)/float64(t.TotalItems)*100)
}
