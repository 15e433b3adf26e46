package models

import "time"

// Chat is one conversation thread between a customer and the bot.
// At most one active chat per customer; lookups always filter on
// (customer_id, is_active). Ended chats are immutable history.
type Chat struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	CustomerID uint       `json:"customer_id" gorm:"index;not null"`
	SessionID  string     `json:"session_id" gorm:"uniqueIndex;not null"`
	IsActive   bool       `json:"is_active" gorm:"index;default:true"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`

	Metadata map[string]any `json:"metadata" gorm:"serializer:json"`

	Customer Customer `json:"-" gorm:"foreignKey:CustomerID"`
}

// Message type classifies the message in the domain; role is the
// model-facing speaker tag. A notification has MessageType system
// but Role assistant since it is shown as a bot utterance.
const (
	MessageTypeUser   = "user"
	MessageTypeAI     = "ai"
	MessageTypeSystem = "system"

	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is an append-only record in a chat. Never mutated or
// deleted after creation; ordering is by CreatedAt.
type Message struct {
	ID           uint    `json:"id" gorm:"primaryKey"`
	ChatID       uint    `json:"chat_id" gorm:"index;not null"`
	CustomerID   uint    `json:"customer_id" gorm:"index;not null"`
	Content      string  `json:"content" gorm:"type:text;not null"`
	MessageType  string  `json:"message_type" gorm:"index;not null"` // user, ai, system
	Role         string  `json:"role" gorm:"not null"`               // user, assistant, system
	TokensUsed   int     `json:"tokens_used,omitempty"`
	ModelUsed    string  `json:"model_used,omitempty"`
	ResponseTime float64 `json:"response_time,omitempty"` // seconds

	Metadata map[string]any `json:"metadata" gorm:"serializer:json"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}
