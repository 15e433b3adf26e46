package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/duonguwu/notification-bot/models"
)

var ErrCustomerNotFound = errors.New("customer not found")

// ChatService manages chat sessions. The single-active-chat invariant
// is enforced by query discipline on (customer_id, is_active); two
// concurrent first messages can race to create two active sessions.
// A partial unique index on (customer_id) WHERE is_active would close
// that at the store layer.
type ChatService struct {
	db *gorm.DB
}

func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{db: db}
}

// GetOrCreateActiveChat returns the customer's active session,
// creating one lazily when none exists.
func (s *ChatService) GetOrCreateActiveChat(customerID uint) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.Where("customer_id = ? AND is_active = ?", customerID, true).First(&chat).Error
	if err == nil {
		return &chat, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	chat = models.Chat{
		CustomerID: customerID,
		SessionID:  uuid.NewString(),
		IsActive:   true,
		StartedAt:  time.Now(),
	}
	if err := s.db.Create(&chat).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

// EndChat closes the customer's active session, if any. Ended chats
// become immutable history.
func (s *ChatService) EndChat(customerID uint) error {
	var chat models.Chat
	err := s.db.Where("customer_id = ? AND is_active = ?", customerID, true).First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	now := time.Now()
	chat.IsActive = false
	chat.EndedAt = &now
	return s.db.Save(&chat).Error
}
