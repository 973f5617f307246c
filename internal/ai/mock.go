package ai

import (
	"context"

	"github.com/chatrelay/chatrelay/internal/domain"
)

// MockClient is a configurable AI client for testing.
// Set the response fields to control what Chat returns.
type MockClient struct {
	ChatResponse *domain.ChatResult
	ChatError    error
	Healthy      bool

	// Call tracking for assertions
	ChatCalls []domain.ChatCall
}

func NewMockClient() *MockClient {
	return &MockClient{
		ChatResponse: &domain.ChatResult{
			Text:      "Mock response",
			Model:     "mock-model",
			LatencyMS: 1,
		},
		Healthy: true,
	}
}

func (c *MockClient) Chat(ctx context.Context, call domain.ChatCall) (*domain.ChatResult, error) {
	c.ChatCalls = append(c.ChatCalls, call)
	if c.ChatError != nil {
		return nil, c.ChatError
	}
	return c.ChatResponse, nil
}

func (c *MockClient) HealthCheck(ctx context.Context) bool {
	return c.Healthy
}

// Reset clears all recorded calls and resets responses to defaults.
func (c *MockClient) Reset() {
	c.ChatResponse = &domain.ChatResult{
		Text:      "Mock response",
		Model:     "mock-model",
		LatencyMS: 1,
	}
	c.ChatError = nil
	c.Healthy = true
	c.ChatCalls = nil
}
