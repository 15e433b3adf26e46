package tasks

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/duonguwu/notification-bot/models"
)

// ImportCustomersPayload is the enqueue payload for a CSV import job.
type ImportCustomersPayload struct {
	FilePath string `json:"file_path"`
	UserID   uint   `json:"user_id"`
}

// ImportCustomersRunner imports customers from an uploaded CSV file.
// Per-row problems (missing required fields, duplicate email, insert
// error) count as failed items and the batch continues; anything
// outside the per-row scope fails the whole task.
type ImportCustomersRunner struct {
	db *gorm.DB
}

func NewImportCustomersRunner(db *gorm.DB) *ImportCustomersRunner {
	return &ImportCustomersRunner{db: db}
}

func (r *ImportCustomersRunner) Name() string {
	return JobImportCustomers
}

func (r *ImportCustomersRunner) Run(ctx context.Context, jobID string, rawPayload json.RawMessage) error {
	task, err := loadTask(r.db, jobID)
	if err != nil {
		return err
	}

	var payload ImportCustomersPayload
	if err := json.Unmarshal(rawPayload, &payload); err != nil {
		failTask(r.db, task, err)
		return err
	}

	// The upload is transient; it is removed once the run ends,
	// whether the import succeeded or not. Removal is best-effort.
	defer func() {
		if err := os.Remove(payload.FilePath); err != nil {
			log.Printf("[IMPORT] Could not remove %s: %v", payload.FilePath, err)
		}
	}()

	task.Start()
	if err := r.db.Save(task).Error; err != nil {
		return err
	}

	if err := r.importFile(ctx, task, payload.FilePath); err != nil {
		failTask(r.db, task, err)
		return err
	}

	task.Complete(map[string]any{
		"status":       models.TaskStatusCompleted,
		"total_rows":   task.TotalItems,
		"processed":    task.ProcessedItems,
		"failed":       task.FailedItems,
		"success_rate": task.SuccessRate(),
	})
	return r.db.Save(task).Error
}

func (r *ImportCustomersRunner) importFile(ctx context.Context, task *models.Task, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read CSV rows: %w", err)
	}

	task.TotalItems = len(rows)
	if err := r.db.Save(task).Error; err != nil {
		return err
	}

	field := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	for idx, row := range rows {
		if err := r.importRow(ctx, task, row, field); err != nil {
			task.FailedItems++
			log.Printf("[IMPORT] Row %d: %v", idx+1, err)
		} else {
			task.ProcessedItems++
		}

		// Checkpoint every 10 rows so observers get live progress.
		if (idx+1)%10 == 0 {
			task.Progress = float64(idx+1) / float64(len(rows))
			r.db.Save(task)
		}
	}

	return nil
}

func (r *ImportCustomersRunner) importRow(ctx context.Context, task *models.Task, row []string, field func([]string, string) string) error {
	email := field(row, "email")
	fullName := field(row, "full_name")
	if email == "" || fullName == "" {
		return fmt.Errorf("missing email or full_name")
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Customer{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("duplicate email: %s", email)
	}

	language := field(row, "language")
	if language == "" {
		language = "vi"
	}

	var tags []string
	for _, tag := range strings.Split(field(row, "tags"), ",") {
		if t := strings.TrimSpace(tag); t != "" {
			tags = append(tags, t)
		}
	}

	var phone *string
	if p := field(row, "phone"); p != "" {
		phone = &p
	}

	customer := models.Customer{
		Email:    email,
		FullName: fullName,
		Phone:    phone,
		Company:  field(row, "company"),
		Position: field(row, "position"),
		Address:  field(row, "address"),
		City:     field(row, "city"),
		Country:  field(row, "country"),
		Language: language,
		IsActive: true,
		Tags:     tags,
	}
	if err := r.db.WithContext(ctx).Create(&customer).Error; err != nil {
		return err
	}

	log.Printf("[IMPORT] Imported: %s", email)
	return nil
}
