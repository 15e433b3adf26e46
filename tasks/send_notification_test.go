package tasks

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/duonguwu/notification-bot/models"
)

func seedCustomer(t *testing.T, db *gorm.DB, email, fullName, company string) *models.Customer {
	t.Helper()

	customer := &models.Customer{
		Email:    email,
		FullName: fullName,
		Company:  company,
		Language: "vi",
		IsActive: true,
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("failed to seed customer: %v", err)
	}
	return customer
}

func seedConfig(t *testing.T, db *gorm.DB, name, body string) *models.NotificationConfig {
	t.Helper()

	config := &models.NotificationConfig{
		Name:             name,
		Subject:          "Order update",
		BodyTemplate:     body,
		NotificationType: "chat",
		IsActive:         true,
		CreatedBy:        1,
	}
	if err := db.Create(config).Error; err != nil {
		t.Fatalf("failed to seed notification config: %v", err)
	}
	return config
}

func TestFanOutRendersIntoActiveChat(t *testing.T) {
	db := newTestDB(t)
	customer := seedCustomer(t, db, "jane@x.com", "Jane", "")
	config := seedConfig(t, db, "order-shipped", "Hi {customer_name}, your order at {company} shipped")
	enqueueTask(t, db, "job-10", JobSendNotification)

	runner := NewSendNotificationRunner(db)
	payload := rawPayload(t, SendNotificationPayload{
		CustomerIDs:          []string{AllCustomers},
		NotificationConfigID: config.ID,
		UserID:               1,
	})
	if err := runner.Run(context.Background(), "job-10", payload); err != nil {
		t.Fatalf("run: %v", err)
	}

	task, err := loadTask(db, "job-10")
	if err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("expected completed, got %s", task.Status)
	}
	if task.TotalItems != 1 || task.ProcessedItems != 1 || task.FailedItems != 0 {
		t.Errorf("expected 1 total / 1 sent / 0 failed, got %d/%d/%d",
			task.TotalItems, task.ProcessedItems, task.FailedItems)
	}

	var message models.Message
	if err := db.Where("customer_id = ?", customer.ID).First(&message).Error; err != nil {
		t.Fatalf("find message: %v", err)
	}
	if message.Content != "Hi Jane, your order at FTEL shipped" {
		t.Errorf("unexpected rendered content %q", message.Content)
	}
	if message.MessageType != models.MessageTypeSystem {
		t.Errorf("expected system message type, got %q", message.MessageType)
	}
	if message.Role != models.RoleAssistant {
		t.Errorf("expected assistant role, got %q", message.Role)
	}

	var chat models.Chat
	if err := db.First(&chat, message.ChatID).Error; err != nil {
		t.Fatalf("find chat: %v", err)
	}
	if chat.CustomerID != customer.ID || !chat.IsActive {
		t.Error("message should land in the customer's active chat")
	}
}

func TestFanOutCheckpointsProgress(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 6; i++ {
		seedCustomer(t, db, fmt.Sprintf("u%d@x.com", i), fmt.Sprintf("User %d", i), "")
	}
	config := seedConfig(t, db, "promo", "Hello {customer_name}")
	enqueueTask(t, db, "job-15", JobSendNotification)
	writes := captureProgress(t, db)

	runner := NewSendNotificationRunner(db)
	payload := rawPayload(t, SendNotificationPayload{
		CustomerIDs:          []string{AllCustomers},
		NotificationConfigID: config.ID,
		UserID:               1,
	})
	if err := runner.Run(context.Background(), "job-15", payload); err != nil {
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

	task, err := loadTask(db, "job-15")
	if err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.Progress != 1.0 || task.ProcessedItems != 6 {
		t.Errorf("expected full progress with 6 sent, got %v / %d", task.Progress, task.ProcessedItems)
	}
}

func TestFanOutCompanyOverride(t *testing.T) {
	db := newTestDB(t)
	customer := seedCustomer(t, db, "bob@x.com", "Bob", "Acme")
	config := seedConfig(t, db, "order-shipped", "Hi {customer_name}, your order at {company} shipped")
	enqueueTask(t, db, "job-11", JobSendNotification)

	runner := NewSendNotificationRunner(db)
	payload := rawPayload(t, SendNotificationPayload{
		CustomerIDs:          []string{strconv.FormatUint(uint64(customer.ID), 10)},
		NotificationConfigID: config.ID,
		UserID:               1,
	})
	if err := runner.Run(context.Background(), "job-11", payload); err != nil {
		t.Fatalf("run: %v", err)
	}

	var message models.Message
	if err := db.Where("customer_id = ?", customer.ID).First(&message).Error; err != nil {
		t.Fatalf("find message: %v", err)
	}
	if message.Content != "Hi Bob, your order at Acme shipped" {
		t.Errorf("customer company should win over the default, got %q", message.Content)
	}
}

func TestFanOutTemplateFailureCountsAsItemFailure(t *testing.T) {
	db := newTestDB(t)
	seedCustomer(t, db, "eve@x.com", "Eve", "")
	config := seedConfig(t, db, "promo", "Your code is {promo_code}")
	enqueueTask(t, db, "job-12", JobSendNotification)

	runner := NewSendNotificationRunner(db)
	payload := rawPayload(t, SendNotificationPayload{
		CustomerIDs:          []string{AllCustomers},
		NotificationConfigID: config.ID,
		UserID:               1,
	})
	if err := runner.Run(context.Background(), "job-12", payload); err != nil {
		t.Fatalf("run: %v", err)
	}

	task, err := loadTask(db, "job-12")
	if err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("item failures should not fail the job, got %s", task.Status)
	}
	if task.ProcessedItems != 0 || task.FailedItems != 1 {
		t.Errorf("expected 0 sent / 1 failed, got %d/%d", task.ProcessedItems, task.FailedItems)
	}

	var count int64
	if err := db.Model(&models.Message{}).Count(&count).Error; err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 0 {
		t.Errorf("no message should be created when rendering fails, got %d", count)
	}
}

func TestFanOutMissingConfigFailsTask(t *testing.T) {
	db := newTestDB(t)
	seedCustomer(t, db, "amy@x.com", "Amy", "")
	enqueueTask(t, db, "job-13", JobSendNotification)

	runner := NewSendNotificationRunner(db)
	payload := rawPayload(t, SendNotificationPayload{
		CustomerIDs:          []string{AllCustomers},
		NotificationConfigID: 999,
		UserID:               1,
	})
	err := runner.Run(context.Background(), "job-13", payload)
	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !strings.Contains(err.Error(), "999") {
		t.Errorf("error should name the config id, got %v", err)
	}

	task, loadErr := loadTask(db, "job-13")
	if loadErr != nil {
		t.Fatalf("load task: %v", loadErr)
	}
	if task.Status != models.TaskStatusFailed {
		t.Errorf("expected failed, got %s", task.Status)
	}
}

func TestFanOutInvalidCustomerID(t *testing.T) {
	db := newTestDB(t)
	config := seedConfig(t, db, "promo", "Hello {customer_name}")
	enqueueTask(t, db, "job-14", JobSendNotification)

	runner := NewSendNotificationRunner(db)
	payload := rawPayload(t, SendNotificationPayload{
		CustomerIDs:          []string{"not-a-number"},
		NotificationConfigID: config.ID,
		UserID:               1,
	})
	if err := runner.Run(context.Background(), "job-14", payload); err == nil {
		t.Fatal("expected error for malformed customer id")
	}

	task, err := loadTask(db, "job-14")
	if err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.Status != models.TaskStatusFailed {
		t.Errorf("expected failed, got %s", task.Status)
	}
}
