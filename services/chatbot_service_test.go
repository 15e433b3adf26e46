package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/duonguwu/notification-bot/llm"
	"github.com/duonguwu/notification-bot/models"
)

type fakeModel struct {
	reply string
	err   error
	seen  []llm.Message
}

func (f *fakeModel) Chat(ctx context.Context, messages []llm.Message, config llm.ModelConfig) (llm.Message, error) {
	f.seen = messages
	if f.err != nil {
		return llm.Message{}, f.err
	}
	return llm.Message{Role: llm.RoleAssistant, Content: f.reply}, nil
}

func (f *fakeModel) ModelName() string {
	return "fake-model"
}

func newTestChatbot(t *testing.T, model llm.Client) (*ChatbotService, *MemoryService) {
	t.Helper()
	memory := NewMemoryService(newTestDB(t), newFakeCache(), 30*time.Minute, 50)
	return NewChatbotService(memory, model), memory
}

func TestGenerateResponseSuccess(t *testing.T) {
	model := &fakeModel{reply: "Chào anh!"}
	svc, _ := newTestChatbot(t, model)

	customer := &models.Customer{ID: 1, FullName: "Nguyen Van A", Email: "a@x.com"}
	reply := svc.GenerateResponse(context.Background(), customer, "xin chào")

	if reply.Content != "Chào anh!" {
		t.Errorf("expected model reply, got %q", reply.Content)
	}
	if reply.MessageType != models.MessageTypeAI {
		t.Errorf("expected message_type ai, got %s", reply.MessageType)
	}
	if reply.Role != models.RoleAssistant {
		t.Errorf("expected role assistant, got %s", reply.Role)
	}
	if reply.ModelUsed != "fake-model" {
		t.Errorf("expected model name recorded, got %s", reply.ModelUsed)
	}
	if reply.Error != "" {
		t.Errorf("expected no error field, got %q", reply.Error)
	}
	if reply.ResponseTime < 0 {
		t.Errorf("expected non-negative response time, got %f", reply.ResponseTime)
	}
}

func TestGenerateResponseFallbackOnModelFailure(t *testing.T) {
	model := &fakeModel{err: errors.New("model timed out")}
	svc, _ := newTestChatbot(t, model)

	customer := &models.Customer{ID: 1, FullName: "Nguyen Van A", Email: "a@x.com"}
	reply := svc.GenerateResponse(context.Background(), customer, "xin chào")

	if reply.Content == "" {
		t.Fatal("expected non-empty fallback content")
	}
	if reply.MessageType != models.MessageTypeAI {
		t.Errorf("expected message_type ai, got %s", reply.MessageType)
	}
	if reply.Error == "" {
		t.Error("expected error field populated")
	}
	if !strings.Contains(reply.Error, "model timed out") {
		t.Errorf("expected diagnosable error, got %q", reply.Error)
	}
}

func TestPromptCarriesNotificationsAndContext(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	memory := NewMemoryService(newTestDB(t), newFakeCache(), 30*time.Minute, 50)
	svc := NewChatbotService(memory, model)

	customer := &models.Customer{ID: 1, FullName: "Jane", Email: "jane@x.com"}
	seedMessage(t, memory.db, 1, "Khuyến mãi tháng 6", models.MessageTypeSystem, models.RoleAssistant, time.Now().Add(-time.Hour))

	svc.GenerateResponse(context.Background(), customer, "có thông báo gì không?")

	if len(model.seen) != 3 {
		t.Fatalf("expected 3 prompt segments, got %d", len(model.seen))
	}
	if model.seen[0].Role != llm.RoleSystem || !strings.Contains(model.seen[0].Content, "Khuyến mãi tháng 6") {
		t.Error("expected notification injected into the system instruction")
	}
	if model.seen[1].Role != llm.RoleSystem || !strings.Contains(model.seen[1].Content, "Jane") {
		t.Error("expected customer profile in the context segment")
	}
	if model.seen[2].Role != llm.RoleUser || model.seen[2].Content != "có thông báo gì không?" {
		t.Error("expected the user turn last")
	}
}

func TestUpdateMemoryAppendsBothTurnsInOrder(t *testing.T) {
	model := &fakeModel{reply: "đã rõ"}
	svc, memory := newTestChatbot(t, model)

	reply := svc.GenerateResponse(context.Background(), &models.Customer{ID: 7, FullName: "B"}, "câu hỏi")
	svc.UpdateMemory(context.Background(), 7, "câu hỏi", reply)

	window := memory.GetShortTerm(context.Background(), 7)
	if len(window) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(window))
	}
	if window[0].MessageType != models.MessageTypeUser || window[0].Content != "câu hỏi" {
		t.Errorf("expected user turn first, got %+v", window[0])
	}
	if window[1].MessageType != models.MessageTypeAI || window[1].Content != "đã rõ" {
		t.Errorf("expected assistant turn last, got %+v", window[1])
	}
}

func TestBuildContextLimits(t *testing.T) {
	var memory []MemoryEntry
	for i := 0; i < 5; i++ {
		memory = append(memory, MemoryEntry{
			Role:        models.RoleAssistant,
			Content:     "notif",
			MessageType: models.MessageTypeSystem,
		})
	}
	for i := 0; i < 15; i++ {
		memory = append(memory, MemoryEntry{
			Role:        models.RoleUser,
			Content:     "turn",
			MessageType: models.MessageTypeUser,
		})
	}

	_, notifications := buildContext(memory, nil)
	if len(notifications) != 3 {
		t.Errorf("expected at most 3 notifications, got %d", len(notifications))
	}
}
