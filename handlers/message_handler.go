package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/duonguwu/notification-bot/models"
	"github.com/duonguwu/notification-bot/services"
)

type MessageHandler struct {
	db      *gorm.DB
	chats   *services.ChatService
	chatbot *services.ChatbotService
	memory  *services.MemoryService
}

func NewMessageHandler(db *gorm.DB, chats *services.ChatService, chatbot *services.ChatbotService, memory *services.MemoryService) *MessageHandler {
	return &MessageHandler{db: db, chats: chats, chatbot: chatbot, memory: memory}
}

type sendMessageRequest struct {
	CustomerID uint   `json:"customer_id"`
	Content    string `json:"content"`
}

type messageResponse struct {
	ID          uint           `json:"id"`
	Content     string         `json:"content"`
	Role        string         `json:"role"`
	MessageType string         `json:"message_type"`
	CreatedAt   string         `json:"created_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// SendMessage runs one conversation turn: persist the user message,
// generate the assistant reply, persist it, and update the short-term
// window. A model failure comes back as a normal reply carrying the
// fallback text, not as an HTTP error.
func (h *MessageHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Content == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "content is required"})
	}

	var customer models.Customer
	if err := h.db.First(&customer, req.CustomerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "customer not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database error"})
	}

	chat, err := h.chats.GetOrCreateActiveChat(customer.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to open chat session"})
	}

	ctx := c.Request().Context()

	userMessage := models.Message{
		ChatID:      chat.ID,
		CustomerID:  customer.ID,
		Content:     req.Content,
		Role:        models.RoleUser,
		MessageType: models.MessageTypeUser,
	}
	if err := h.db.Create(&userMessage).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save message"})
	}

	reply := h.chatbot.GenerateResponse(ctx, &customer, req.Content)

	aiMessage := models.Message{
		ChatID:       chat.ID,
		CustomerID:   customer.ID,
		Content:      reply.Content,
		Role:         models.RoleAssistant,
		MessageType:  models.MessageTypeAI,
		ModelUsed:    reply.ModelUsed,
		ResponseTime: reply.ResponseTime,
		Metadata:     reply.Metadata,
	}
	if err := h.db.Create(&aiMessage).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save reply"})
	}

	h.chatbot.UpdateMemory(ctx, customer.ID, req.Content, reply)

	return c.JSON(http.StatusOK, messageResponse{
		ID:          aiMessage.ID,
		Content:     reply.Content,
		Role:        reply.Role,
		MessageType: reply.MessageType,
		CreatedAt:   aiMessage.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Metadata:    reply.Metadata,
		Error:       reply.Error,
	})
}

// GetHistory returns a customer's messages, oldest first.
func (h *MessageHandler) GetHistory(c echo.Context) error {
	customerID, err := strconv.ParseUint(c.QueryParam("customer_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "customer_id is required"})
	}
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}

	query := h.db.Where("customer_id = ?", customerID)
	if messageType := c.QueryParam("message_type"); messageType != "" {
		query = query.Where("message_type = ?", messageType)
	}

	var messages []models.Message
	if err := query.Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch history"})
	}

	// Reverse to oldest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": messages,
		"total":    len(messages),
	})
}

func (h *MessageHandler) GetMemoryStats(c echo.Context) error {
	customerID, err := strconv.ParseUint(c.QueryParam("customer_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "customer_id is required"})
	}
	stats := h.memory.Stats(c.Request().Context(), uint(customerID))
	return c.JSON(http.StatusOK, stats)
}

// EndChat closes the customer's active session. The next message
// starts a fresh one.
func (h *MessageHandler) EndChat(c echo.Context) error {
	customerID, err := strconv.ParseUint(c.Param("customerId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid customer id"})
	}
	if err := h.chats.EndChat(uint(customerID)); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to end chat session"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Chat session ended"})
}

// GetNotificationContext returns the recent system notifications a
// customer would see injected into their conversation.
func (h *MessageHandler) GetNotificationContext(c echo.Context) error {
	customerID, err := strconv.ParseUint(c.QueryParam("customer_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "customer_id is required"})
	}
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 10
	}

	notifications := h.memory.GetRecentNotifications(c.Request().Context(), uint(customerID), limit)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"total":         len(notifications),
	})
}
