package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/duonguwu/notification-bot/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := models.AutoMigrateAll(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "customers.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write CSV fixture: %v", err)
	}
	return path
}

func enqueueTask(t *testing.T, db *gorm.DB, jobID, taskName string) *models.Task {
	t.Helper()

	task := models.NewTask(jobID, taskName, 1, nil)
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("failed to create task record: %v", err)
	}
	return task
}

func rawPayload(t *testing.T, payload any) json.RawMessage {
	t.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return raw
}

// captureProgress records every Progress value flushed to the Task
// record, in write order.
func captureProgress(t *testing.T, db *gorm.DB) *[]float64 {
	t.Helper()

	var writes []float64
	err := db.Callback().Update().After("gorm:update").Register("capture_task_progress", func(tx *gorm.DB) {
		if task, ok := tx.Statement.Dest.(*models.Task); ok {
			writes = append(writes, task.Progress)
		}
	})
	if err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}
	return &writes
}

func TestImportSkipsBadAndDuplicateRows(t *testing.T) {
	db := newTestDB(t)
	enqueueTask(t, db, "job-1", JobImportCustomers)

	csvPath := writeCSV(t, strings.Join([]string{
		"email,full_name",
		"a@x.com,A",
		"a@x.com,A2",
		",B",
	}, "\n"))

	runner := NewImportCustomersRunner(db)
	payload := rawPayload(t, ImportCustomersPayload{FilePath: csvPath, UserID: 1})
	if err := runner.Run(context.Background(), "job-1", payload); err != nil {
		t.Fatalf("run: %v", err)
	}

	task, err := loadTask(db, "job-1")
	if err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("expected completed, got %s", task.Status)
	}
	if task.TotalItems != 3 || task.ProcessedItems != 1 || task.FailedItems != 2 {
		t.Errorf("expected 3 total / 1 processed / 2 failed, got %d/%d/%d",
			task.TotalItems, task.ProcessedItems, task.FailedItems)
	}

	var count int64
	if err := db.Model(&models.Customer{}).Count(&count).Error; err != nil {
		t.Fatalf("count customers: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly one customer persisted, got %d", count)
	}

	var customer models.Customer
	if err := db.Where("email = ?", "a@x.com").First(&customer).Error; err != nil {
		t.Fatalf("find customer: %v", err)
	}
	if customer.FullName != "A" {
		t.Errorf("first row should win, got full name %q", customer.FullName)
	}
	if customer.Language != "vi" {
		t.Errorf("expected default language vi, got %q", customer.Language)
	}
	if !customer.IsActive {
		t.Error("imported customer should be active")
	}
}

func TestImportCheckpointsProgress(t *testing.T) {
	db := newTestDB(t)
	enqueueTask(t, db, "job-5", JobImportCustomers)
	writes := captureProgress(t, db)

	rows := []string{"email,full_name"}
	for i := 0; i < 12; i++ {
		rows = append(rows, fmt.Sprintf("u%d@x.com,User %d", i, i))
	}
	csvPath := writeCSV(t, strings.Join(rows, "\n"))

	runner := NewImportCustomersRunner(db)
	payload := rawPayload(t, ImportCustomersPayload{FilePath: csvPath, UserID: 1})
	if err := runner.Run(context.Background(), "job-5", payload); err != nil {
		t.Fatalf("run: %v", err)
	}

	var sawPartial bool
	prev := -1.0
	for _, p := range *writes {
		if p < prev {
			t.Fatalf("progress went backwards: %v", *writes)
		}
		prev = p
		if p > 0 && p < 1 {
			sawPartial = true
		}
	}
	if !sawPartial {
		t.Errorf("expected a mid-run checkpoint between 0 and 1, got %v", *writes)
	}
	if len(*writes) == 0 || (*writes)[len(*writes)-1] != 1.0 {
		t.Errorf("expected final progress 1.0, got %v", *writes)
	}

	task, err := loadTask(db, "job-5")
	if err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.ProcessedItems != 12 || task.FailedItems != 0 {
		t.Errorf("expected 12 processed / 0 failed, got %d/%d", task.ProcessedItems, task.FailedItems)
	}
}

func TestImportRemovesSourceFile(t *testing.T) {
	db := newTestDB(t)
	enqueueTask(t, db, "job-2", JobImportCustomers)

	csvPath := writeCSV(t, "email,full_name\nb@x.com,B\n")

	runner := NewImportCustomersRunner(db)
	payload := rawPayload(t, ImportCustomersPayload{FilePath: csvPath, UserID: 1})
	if err := runner.Run(context.Background(), "job-2", payload); err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, err := os.Stat(csvPath); !os.IsNotExist(err) {
		t.Errorf("expected source file removed, stat err: %v", err)
	}
}

func TestImportRemovesSourceFileOnFailure(t *testing.T) {
	db := newTestDB(t)
	enqueueTask(t, db, "job-6", JobImportCustomers)

	// No header row, so the whole job faults before any row is read.
	csvPath := writeCSV(t, "")

	runner := NewImportCustomersRunner(db)
	payload := rawPayload(t, ImportCustomersPayload{FilePath: csvPath, UserID: 1})
	if err := runner.Run(context.Background(), "job-6", payload); err == nil {
		t.Fatal("expected error for unreadable CSV")
	}

	task, err := loadTask(db, "job-6")
	if err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.Status != models.TaskStatusFailed {
		t.Errorf("expected failed, got %s", task.Status)
	}
	if _, err := os.Stat(csvPath); !os.IsNotExist(err) {
		t.Errorf("expected source file removed after failure, stat err: %v", err)
	}
}

func TestImportMissingFileFailsTask(t *testing.T) {
	db := newTestDB(t)
	enqueueTask(t, db, "job-3", JobImportCustomers)

	runner := NewImportCustomersRunner(db)
	payload := rawPayload(t, ImportCustomersPayload{FilePath: "/nonexistent/customers.csv", UserID: 1})
	if err := runner.Run(context.Background(), "job-3", payload); err == nil {
		t.Fatal("expected error for missing file")
	}

	task, err := loadTask(db, "job-3")
	if err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.Status != models.TaskStatusFailed {
		t.Errorf("expected failed, got %s", task.Status)
	}
	if task.ErrorMessage == "" {
		t.Error("expected error message recorded on the task")
	}
}

func TestImportWithoutTaskRecord(t *testing.T) {
	db := newTestDB(t)

	runner := NewImportCustomersRunner(db)
	payload := rawPayload(t, ImportCustomersPayload{FilePath: "unused.csv", UserID: 1})
	err := runner.Run(context.Background(), "missing-job", payload)
	if err == nil {
		t.Fatal("expected error for missing task record")
	}
	if !strings.Contains(err.Error(), "missing-job") {
		t.Errorf("error should name the job id, got %v", err)
	}
}
