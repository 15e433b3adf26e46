package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"gorm.io/gorm"

	"github.com/duonguwu/notification-bot/models"
	"github.com/duonguwu/notification-bot/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ChatWebSocketHandler drives a live conversation over one socket:
// each inbound frame is one user turn, each outbound frame the
// assistant reply for it.
type ChatWebSocketHandler struct {
	db      *gorm.DB
	chats   *services.ChatService
	chatbot *services.ChatbotService
}

func NewChatWebSocketHandler(db *gorm.DB, chats *services.ChatService, chatbot *services.ChatbotService) *ChatWebSocketHandler {
	return &ChatWebSocketHandler{db: db, chats: chats, chatbot: chatbot}
}

type wsInbound struct {
	Content string `json:"content"`
}

type wsOutbound struct {
	Content     string `json:"content"`
	Role        string `json:"role"`
	MessageType string `json:"message_type"`
	Error       string `json:"error,omitempty"`
}

func (h *ChatWebSocketHandler) HandleWebSocket(c echo.Context) error {
	customerID, err := strconv.ParseUint(c.Param("customerId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid customer id"})
	}

	var customer models.Customer
	if err := h.db.First(&customer, customerID).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "customer not found"})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := c.Request().Context()

	for {
		var inbound wsInbound
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("websocket read error for customer %d: %v", customer.ID, err)
			}
			return nil
		}
		if inbound.Content == "" {
			continue
		}

		chat, err := h.chats.GetOrCreateActiveChat(customer.ID)
		if err != nil {
			log.Errorf("failed to open chat session: %v", err)
			return nil
		}

		userMessage := models.Message{
			ChatID:      chat.ID,
			CustomerID:  customer.ID,
			Content:     inbound.Content,
			Role:        models.RoleUser,
			MessageType: models.MessageTypeUser,
		}
		if err := h.db.Create(&userMessage).Error; err != nil {
			log.Errorf("failed to save message: %v", err)
			return nil
		}

		reply := h.chatbot.GenerateResponse(ctx, &customer, inbound.Content)

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
			log.Errorf("failed to save reply: %v", err)
			return nil
		}

		h.chatbot.UpdateMemory(ctx, customer.ID, inbound.Content, reply)

		if err := conn.WriteJSON(wsOutbound{
			Content:     reply.Content,
			Role:        reply.Role,
			MessageType: reply.MessageType,
			Error:       reply.Error,
		}); err != nil {
			return nil
		}
	}
}
