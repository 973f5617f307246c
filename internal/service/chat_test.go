package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chatrelay/chatrelay/internal/ai"
	"github.com/chatrelay/chatrelay/internal/domain"
	"go.uber.org/zap"
)

func setupChatTest() (*ChatService, *SessionRegistry, *mockUsageStore, *ai.MockClient) {
	registry := testRegistry()
	usage := newMockUsageStore()
	quota := NewQuotaService(usage, zap.NewNop())
	mockAI := ai.NewMockClient()
	svc := NewChatService(registry, quota, mockAI, zap.NewNop())
	return svc, registry, usage, mockAI
}

func chatIdentity() (*domain.Credential, *domain.Tenant) {
	credential := &domain.Credential{ID: 1, TenantID: 100, IsActive: true}
	tenant := privateTenant(100)
	return credential, tenant
}

func TestProcess_Success(t *testing.T) {
	svc, registry, usage, mockAI := setupChatTest()
	credential, tenant := chatIdentity()

	resp, err := svc.Process(context.Background(), credential, tenant, ChatRequest{
		Platform: "internal",
		UserID:   "u1",
		Message:  "hello",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Response != "Mock response" {
		t.Fatalf("unexpected response: %s", resp.Response)
	}
	if len(mockAI.ChatCalls) != 1 {
		t.Fatalf("expected exactly 1 AI call, got %d", len(mockAI.ChatCalls))
	}
	if len(usage.records) != 1 || !usage.records[0].Success {
		t.Fatalf("expected exactly 1 successful usage record, got %+v", usage.records)
	}

	session, ok := registry.Snapshot(SessionKey("internal", &tenant.ID, "u1"))
	if !ok {
		t.Fatal("expected session created")
	}
	if len(session.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(session.History))
	}
	if session.History[0].Content != "hello" || session.History[1].Content != "Mock response" {
		t.Fatalf("unexpected history: %+v", session.History)
	}
}

func TestProcess_HistoryFlowsToAI(t *testing.T) {
	svc, _, _, mockAI := setupChatTest()
	credential, tenant := chatIdentity()
	ctx := context.Background()

	req := ChatRequest{Platform: "internal", UserID: "u1", Message: "first"}
	if _, err := svc.Process(ctx, credential, tenant, req); err != nil {
		t.Fatalf("first turn failed: %v", err)
	}

	req.Message = "second"
	if _, err := svc.Process(ctx, credential, tenant, req); err != nil {
		t.Fatalf("second turn failed: %v", err)
	}

	// The first call carries no history; the second carries the first turn.
	if len(mockAI.ChatCalls[0].History) != 0 {
		t.Fatalf("expected empty history on first call, got %d", len(mockAI.ChatCalls[0].History))
	}
	if len(mockAI.ChatCalls[1].History) != 2 {
		t.Fatalf("expected 2 history entries on second call, got %d", len(mockAI.ChatCalls[1].History))
	}
	if mockAI.ChatCalls[1].Prompt != "second" {
		t.Fatalf("expected prompt outside history, got %s", mockAI.ChatCalls[1].Prompt)
	}
}

func TestProcess_UpstreamFailureRecorded(t *testing.T) {
	svc, registry, usage, mockAI := setupChatTest()
	credential, tenant := chatIdentity()
	mockAI.ChatError = errors.New("connection refused")

	_, err := svc.Process(context.Background(), credential, tenant, ChatRequest{
		Platform: "internal",
		UserID:   "u1",
		Message:  "hello",
	})
	if !errors.Is(err, domain.ErrUpstreamFailure) {
		t.Fatalf("expected ErrUpstreamFailure, got %v", err)
	}

	// The attempt still consumed quota.
	if len(usage.records) != 1 {
		t.Fatalf("expected 1 usage record, got %d", len(usage.records))
	}
	if usage.records[0].Success {
		t.Fatal("expected failure recorded")
	}
	if usage.records[0].ErrorMessage == "" {
		t.Fatal("expected error message recorded")
	}

	// Failed turns leave no trace in the conversation.
	session, _ := registry.Snapshot(SessionKey("internal", &tenant.ID, "u1"))
	if len(session.History) != 0 {
		t.Fatalf("expected no history on failure, got %d entries", len(session.History))
	}
}

func TestProcess_RateLimitedBeforeAICall(t *testing.T) {
	svc, registry, usage, mockAI := setupChatTest()
	credential, tenant := chatIdentity()
	tenant.RateLimit = intPtr(1)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	registry.SetClock(func() time.Time { return now })

	ctx := context.Background()
	req := ChatRequest{Platform: "internal", UserID: "u1", Message: "hello"}

	if _, err := svc.Process(ctx, credential, tenant, req); err != nil {
		t.Fatalf("first turn failed: %v", err)
	}

	_, err := svc.Process(ctx, credential, tenant, req)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if len(mockAI.ChatCalls) != 1 {
		t.Fatalf("throttled request must not reach the AI, got %d calls", len(mockAI.ChatCalls))
	}
	if len(usage.records) != 1 {
		t.Fatalf("throttled request must not be recorded, got %d records", len(usage.records))
	}
}

func TestProcess_QuotaDeniedBeforeAICall(t *testing.T) {
	svc, _, usage, mockAI := setupChatTest()
	credential, tenant := chatIdentity()
	tenant.DailyQuota = int64Ptr(1)

	usage.seed(100, 1, time.Now().Add(-time.Hour), true)

	_, err := svc.Process(context.Background(), credential, tenant, ChatRequest{
		Platform: "internal",
		UserID:   "u1",
		Message:  "hello",
	})
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if len(mockAI.ChatCalls) != 0 {
		t.Fatalf("quota-denied request must not reach the AI, got %d calls", len(mockAI.ChatCalls))
	}
}

func TestProcess_InactiveTenant(t *testing.T) {
	svc, _, _, mockAI := setupChatTest()
	credential, tenant := chatIdentity()
	tenant.IsActive = false

	_, err := svc.Process(context.Background(), credential, tenant, ChatRequest{
		Platform: "internal",
		UserID:   "u1",
		Message:  "hello",
	})
	if !errors.Is(err, domain.ErrTenantInactive) {
		t.Fatalf("expected ErrTenantInactive, got %v", err)
	}
	if len(mockAI.ChatCalls) != 0 {
		t.Fatal("inactive tenant must not reach the AI")
	}
}

func TestProcess_ModelSwitchPerRequest(t *testing.T) {
	svc, _, _, mockAI := setupChatTest()
	credential, tenant := chatIdentity()

	_, err := svc.Process(context.Background(), credential, tenant, ChatRequest{
		Platform: "internal",
		UserID:   "u1",
		Message:  "hello",
		Model:    "anthropic/claude-sonnet-4",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if mockAI.ChatCalls[0].Model != "anthropic/claude-sonnet-4" {
		t.Fatalf("expected switched model on AI call, got %s", mockAI.ChatCalls[0].Model)
	}
}

func TestProcess_ModelSwitchRejected(t *testing.T) {
	svc, _, _, mockAI := setupChatTest()
	credential, tenant := chatIdentity()

	_, err := svc.Process(context.Background(), credential, tenant, ChatRequest{
		Platform: "internal",
		UserID:   "u1",
		Message:  "hello",
		Model:    "unlisted/model",
	})
	if !errors.Is(err, domain.ErrModelNotAvailable) {
		t.Fatalf("expected ErrModelNotAvailable, got %v", err)
	}
	if len(mockAI.ChatCalls) != 0 {
		t.Fatal("rejected model switch must not reach the AI")
	}
}
