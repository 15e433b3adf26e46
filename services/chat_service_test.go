package services

import (
	"testing"
)

func TestGetOrCreateActiveChatIsStable(t *testing.T) {
	svc := NewChatService(newTestDB(t))

	first, err := svc.GetOrCreateActiveChat(1)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if first.SessionID == "" {
		t.Error("expected generated session id")
	}
	if !first.IsActive {
		t.Error("expected active session")
	}

	second, err := svc.GetOrCreateActiveChat(1)
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected the same active session, got %d and %d", first.ID, second.ID)
	}
}

func TestEndChatRetiresSession(t *testing.T) {
	svc := NewChatService(newTestDB(t))

	first, err := svc.GetOrCreateActiveChat(1)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if err := svc.EndChat(1); err != nil {
		t.Fatalf("end chat: %v", err)
	}

	next, err := svc.GetOrCreateActiveChat(1)
	if err != nil {
		t.Fatalf("recreate chat: %v", err)
	}
	if next.ID == first.ID {
		t.Error("expected a fresh session after ending the previous one")
	}

	// Ending with no active session is a no-op.
	if err := svc.EndChat(42); err != nil {
		t.Errorf("end chat without session: %v", err)
	}
}
