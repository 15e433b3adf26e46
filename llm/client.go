// Package llm abstracts the external language model provider.
package llm

import "context"

// Role is the model-facing speaker tag of a prompt segment.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one role-tagged text block of a prompt or reply.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Client is the interface for interacting with the model provider.
// One request, one reply; no streaming.
type Client interface {
	Chat(ctx context.Context, messages []Message, config ModelConfig) (Message, error)
	ModelName() string
}

// ModelConfig holds generation parameters for a single call.
type ModelConfig struct {
	Temperature     float32
	MaxOutputTokens int
}

// DefaultModelConfig returns the settings used for customer chat.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Temperature:     0.1,
		MaxOutputTokens: 1024,
	}
}
