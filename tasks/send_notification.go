package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"

	"gorm.io/gorm"

	"github.com/duonguwu/notification-bot/models"
	"github.com/duonguwu/notification-bot/services"
)

// AllCustomers is the sentinel targeting every active customer.
const AllCustomers = "all"

const defaultCompany = "FTEL"

// SendNotificationPayload is the enqueue payload for a fan-out job.
// CustomerIDs is either a list of customer ids or ["all"].
type SendNotificationPayload struct {
	CustomerIDs          []string          `json:"customer_ids"`
	NotificationConfigID uint              `json:"notification_config_id"`
	Data                 map[string]string `json:"data"`
	UserID               uint              `json:"user_id"`
}

// SendNotificationRunner delivers one notification template to a set
// of customers as system chat messages. Per-customer problems count
// as failed items; a missing config or task fails the whole job.
type SendNotificationRunner struct {
	db    *gorm.DB
	chats *services.ChatService
}

func NewSendNotificationRunner(db *gorm.DB) *SendNotificationRunner {
	return &SendNotificationRunner{
		db:    db,
		chats: services.NewChatService(db),
	}
}

func (r *SendNotificationRunner) Name() string {
	return JobSendNotification
}

func (r *SendNotificationRunner) Run(ctx context.Context, jobID string, rawPayload json.RawMessage) error {
	task, err := loadTask(r.db, jobID)
	if err != nil {
		return err
	}

	var payload SendNotificationPayload
	if err := json.Unmarshal(rawPayload, &payload); err != nil {
		failTask(r.db, task, err)
		return err
	}

	task.Start()
	if err := r.db.Save(task).Error; err != nil {
		return err
	}

	if err := r.fanOut(ctx, task, &payload); err != nil {
		failTask(r.db, task, err)
		return err
	}

	task.Complete(map[string]any{
		"status":          models.TaskStatusCompleted,
		"total_customers": task.TotalItems,
		"sent":            task.ProcessedItems,
		"failed":          task.FailedItems,
		"success_rate":    task.SuccessRate(),
	})
	return r.db.Save(task).Error
}

func (r *SendNotificationRunner) fanOut(ctx context.Context, task *models.Task, payload *SendNotificationPayload) error {
	var config models.NotificationConfig
	if err := r.db.WithContext(ctx).First(&config, payload.NotificationConfigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("notification config %d not found", payload.NotificationConfigID)
		}
		return err
	}

	customers, err := r.resolveCustomers(ctx, payload.CustomerIDs)
	if err != nil {
		return err
	}

	task.TotalItems = len(customers)
	if err := r.db.Save(task).Error; err != nil {
		return err
	}

	log.Printf("[TASK] Sending chat notifications to %d customers", len(customers))

	for idx, customer := range customers {
		if err := r.notifyCustomer(ctx, &config, &customer, payload); err != nil {
			task.FailedItems++
			log.Printf("[TASK] Error sending to %s: %v", customer.Email, err)
		} else {
			task.ProcessedItems++
			log.Printf("[TASK] Sent chat notification to: %s", customer.Email)
		}

		// Checkpoint every 5 customers.
		if (idx+1)%5 == 0 {
			task.Progress = float64(idx+1) / float64(len(customers))
			r.db.Save(task)
		}
	}

	return nil
}

func (r *SendNotificationRunner) resolveCustomers(ctx context.Context, ids []string) ([]models.Customer, error) {
	var customers []models.Customer

	if len(ids) == 1 && ids[0] == AllCustomers {
		if err := r.db.WithContext(ctx).Where("is_active = ?", true).Find(&customers).Error; err != nil {
			return nil, err
		}
		return customers, nil
	}

	numericIDs := make([]uint, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid customer id %q", id)
		}
		numericIDs = append(numericIDs, uint(n))
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", numericIDs).Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *SendNotificationRunner) notifyCustomer(ctx context.Context, config *models.NotificationConfig, customer *models.Customer, payload *SendNotificationPayload) error {
	chat, err := r.chats.GetOrCreateActiveChat(customer.ID)
	if err != nil {
		return err
	}

	data := make(map[string]string, len(payload.Data)+3)
	for k, v := range payload.Data {
		data[k] = v
	}
	data["customer_name"] = customer.FullName
	data["customer_email"] = customer.Email
	if customer.Company != "" {
		data["company"] = customer.Company
	} else {
		data["company"] = defaultCompany
	}

	content, err := RenderTemplate(config.BodyTemplate, data)
	if err != nil {
		return err
	}

	message := models.Message{
		ChatID:      chat.ID,
		CustomerID:  customer.ID,
		Content:     content,
		Role:        models.RoleAssistant, // shown as a bot utterance
		MessageType: models.MessageTypeSystem,
		Metadata: map[string]any{
			"notification_config_id": config.ID,
			"notification_data":      payload.Data,
			"is_system_notification": true,
		},
	}
	return r.db.WithContext(ctx).Create(&message).Error
}
