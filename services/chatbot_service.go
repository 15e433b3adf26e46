package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/duonguwu/notification-bot/llm"
	"github.com/duonguwu/notification-bot/models"
)

const fallbackReply = "Xin lỗi, tôi đang gặp sự cố kỹ thuật. Vui lòng thử lại sau."

const (
	contextNotificationCount = 3
	contextHistoryCount      = 10
)

// ChatReply is the engine's answer to one user turn. Error carries the
// diagnostic cause when the model call failed and the content is the
// canned fallback; it is data, not control flow.
type ChatReply struct {
	Content      string         `json:"content"`
	Role         string         `json:"role"`
	MessageType  string         `json:"message_type"`
	ResponseTime float64        `json:"response_time"`
	ModelUsed    string         `json:"model_used"`
	Error        string         `json:"error,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ChatbotService is the conversation engine: it merges memory into a
// prompt, calls the model and degrades gracefully when the model is
// unreachable. A model outage surfaces as a content-level apology,
// never as an error to the caller.
type ChatbotService struct {
	memory *MemoryService
	client llm.Client
}

func NewChatbotService(memory *MemoryService, client llm.Client) *ChatbotService {
	return &ChatbotService{
		memory: memory,
		client: client,
	}
}

// GenerateResponse answers one user message in the customer's context.
func (s *ChatbotService) GenerateResponse(ctx context.Context, customer *models.Customer, message string) *ChatReply {
	start := time.Now()

	memory := s.memory.GetCombined(ctx, customer.ID, 0, 0, 0)
	contextBlock, notifications := buildContext(memory, customer)
	messages := buildPromptMessages(contextBlock, message, notifications)

	reply, err := s.client.Chat(ctx, messages, llm.DefaultModelConfig())
	elapsed := time.Since(start).Seconds()
	if err != nil {
		return &ChatReply{
			Content:      fallbackReply,
			Role:         models.RoleAssistant,
			MessageType:  models.MessageTypeAI,
			ResponseTime: elapsed,
			ModelUsed:    s.client.ModelName(),
			Error:        err.Error(),
		}
	}

	return &ChatReply{
		Content:      reply.Content,
		Role:         models.RoleAssistant,
		MessageType:  models.MessageTypeAI,
		ResponseTime: elapsed,
		ModelUsed:    s.client.ModelName(),
		Metadata: map[string]any{
			"memory_count":  len(memory),
			"customer_name": customer.FullName,
		},
	}
}

// UpdateMemory records both sides of the exchange in the short-term
// window, user turn first.
func (s *ChatbotService) UpdateMemory(ctx context.Context, customerID uint, userMessage string, reply *ChatReply) {
	s.memory.AddToShortTerm(ctx, customerID, MemoryEntry{
		Role:        models.RoleUser,
		Content:     userMessage,
		MessageType: models.MessageTypeUser,
		Timestamp:   time.Now(),
	})
	s.memory.AddToShortTerm(ctx, customerID, MemoryEntry{
		Role:         models.RoleAssistant,
		Content:      reply.Content,
		MessageType:  models.MessageTypeAI,
		Timestamp:    time.Now(),
		ModelUsed:    reply.ModelUsed,
		ResponseTime: reply.ResponseTime,
	})
}

// buildContext renders the merged memory into a textual block and
// returns the most recent notification texts for the system prompt.
func buildContext(memory []MemoryEntry, customer *models.Customer) (string, []string) {
	var parts []string

	if customer != nil {
		line := fmt.Sprintf("Khách hàng: %s", customer.FullName)
		if customer.Company != "" {
			line += fmt.Sprintf(" từ %s", customer.Company)
		}
		parts = append(parts, line)
	}

	var notifications []string
	var regular []MemoryEntry
	for _, entry := range memory {
		if entry.MessageType == models.MessageTypeSystem {
			notifications = append(notifications, entry.Content)
		} else {
			regular = append(regular, entry)
		}
	}
	if len(notifications) > contextNotificationCount {
		notifications = notifications[len(notifications)-contextNotificationCount:]
	}

	if len(notifications) > 0 {
		parts = append(parts, "Thông báo gần đây:")
		parts = append(parts, notifications...)
	}

	if len(regular) > contextHistoryCount {
		regular = regular[len(regular)-contextHistoryCount:]
	}
	if len(regular) > 0 {
		parts = append(parts, "Lịch sử hội thoại gần đây:")
		for _, entry := range regular {
			speaker := "Bot"
			if entry.Role == models.RoleUser {
				speaker = "Khách hàng"
			}
			parts = append(parts, fmt.Sprintf("%s: %s", speaker, entry.Content))
		}
	}

	return strings.Join(parts, "\n"), notifications
}

// buildPromptMessages assembles the three-segment prompt: the system
// instruction with notifications injected, the context block, and the
// user's new message.
func buildPromptMessages(contextBlock, userMessage string, notifications []string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: BuildSystemPrompt(notifications)},
		{Role: llm.RoleSystem, Content: "Context: " + contextBlock},
		{Role: llm.RoleUser, Content: userMessage},
	}
}
