package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/duonguwu/notification-bot/kafka"
	"github.com/duonguwu/notification-bot/models"
	"github.com/duonguwu/notification-bot/tasks"
)

type NotificationHandler struct {
	db       *gorm.DB
	producer *kafka.Producer
}

func NewNotificationHandler(db *gorm.DB, producer *kafka.Producer) *NotificationHandler {
	return &NotificationHandler{db: db, producer: producer}
}

type createConfigRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Subject          string `json:"subject"`
	BodyTemplate     string `json:"body_template"`
	EmailTemplate    string `json:"email_template"`
	NotificationType string `json:"notification_type"`
}

func (h *NotificationHandler) CreateConfig(c echo.Context) error {
	user := c.Get("user").(*models.User)

	var req createConfigRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Name == "" || req.Subject == "" || req.BodyTemplate == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name, subject and body_template are required"})
	}

	var count int64
	h.db.Model(&models.NotificationConfig{}).Where("name = ?", req.Name).Count(&count)
	if count > 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "notification config with this name already exists"})
	}

	notificationType := req.NotificationType
	if notificationType == "" {
		notificationType = "chat"
	}
	config := models.NotificationConfig{
		Name:             req.Name,
		Description:      req.Description,
		Subject:          req.Subject,
		BodyTemplate:     req.BodyTemplate,
		EmailTemplate:    req.EmailTemplate,
		NotificationType: notificationType,
		IsActive:         true,
		CreatedBy:        user.ID,
	}
	if err := h.db.Create(&config).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create notification config"})
	}
	return c.JSON(http.StatusCreated, config)
}

func (h *NotificationHandler) ListConfigs(c echo.Context) error {
	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := h.db.Order("created_at DESC")
	if isActive := c.QueryParam("is_active"); isActive != "" {
		query = query.Where("is_active = ?", isActive == "true")
	}

	var configs []models.NotificationConfig
	if err := query.Offset(skip).Limit(limit).Find(&configs).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch configs"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"configs": configs,
		"total":   len(configs),
	})
}

func (h *NotificationHandler) GetConfig(c echo.Context) error {
	id := c.Param("id")
	var config models.NotificationConfig
	if err := h.db.First(&config, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "notification config not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database error"})
	}
	return c.JSON(http.StatusOK, config)
}

type sendNotificationRequest struct {
	CustomerIDs          []string          `json:"customer_ids"` // ids, or ["all"]
	NotificationConfigID uint              `json:"notification_config_id"`
	Data                 map[string]string `json:"data"`
}

// SendNotification validates the request and enqueues the fan-out job,
// recording one pending Task keyed by the returned job id.
func (h *NotificationHandler) SendNotification(c echo.Context) error {
	user := c.Get("user").(*models.User)

	var req sendNotificationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if len(req.CustomerIDs) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "customer_ids is required"})
	}

	var config models.NotificationConfig
	if err := h.db.First(&config, req.NotificationConfigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "notification config not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database error"})
	}
	if !config.IsActive {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "notification config is not active"})
	}

	if !(len(req.CustomerIDs) == 1 && req.CustomerIDs[0] == tasks.AllCustomers) {
		ids := make([]uint, 0, len(req.CustomerIDs))
		for _, raw := range req.CustomerIDs {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "some customer IDs are invalid"})
			}
			ids = append(ids, uint(id))
		}
		var count int64
		h.db.Model(&models.Customer{}).Where("id IN ?", ids).Count(&count)
		if count != int64(len(ids)) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "some customer IDs are invalid"})
		}
	}

	data := req.Data
	if data == nil {
		data = map[string]string{}
	}
	payload := tasks.SendNotificationPayload{
		CustomerIDs:          req.CustomerIDs,
		NotificationConfigID: req.NotificationConfigID,
		Data:                 data,
		UserID:               user.ID,
	}
	jobID, err := h.producer.Enqueue(tasks.JobSendNotification, payload)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to enqueue notification job"})
	}

	task := models.NewTask(jobID, tasks.JobSendNotification, user.ID, map[string]any{
		"customer_ids":           req.CustomerIDs,
		"notification_config_id": req.NotificationConfigID,
		"data":                   req.Data,
	})
	if err := h.db.Create(task).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create task record"})
	}

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message":             "Chat notification sending started",
		"job_id":              jobID,
		"task_id":             task.ID,
		"notification_config": config.Name,
	})
}

// GetHistory lists sent system notifications, newest first.
func (h *NotificationHandler) GetHistory(c echo.Context) error {
	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := h.db.Where("message_type = ?", models.MessageTypeSystem)
	if customerID := c.QueryParam("customer_id"); customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}

	var messages []models.Message
	if err := query.Order("created_at DESC").Offset(skip).Limit(limit).Find(&messages).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch history"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": messages,
		"total":         len(messages),
	})
}

func (h *NotificationHandler) GetStats(c echo.Context) error {
	var total int64
	h.db.Model(&models.Message{}).Where("message_type = ?", models.MessageTypeSystem).Count(&total)

	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	var recent int64
	h.db.Model(&models.Message{}).
		Where("message_type = ? AND created_at >= ?", models.MessageTypeSystem, thirtyDaysAgo).
		Count(&recent)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"total_notifications":  total,
		"recent_notifications": recent,
		"notification_type":    "chat",
	})
}
