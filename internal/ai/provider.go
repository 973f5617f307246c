package ai

import (
	"fmt"
	"time"

	"github.com/chatrelay/chatrelay/internal/domain"
)

// Provider constants
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderMock       = "mock"
)

// NewClient creates an AI chat client based on the provider name.
// Returns an error if the provider is unknown or required config is missing.
func NewClient(provider, apiKey, baseURL string, timeout time.Duration) (domain.AIClient, error) {
	switch provider {
	case ProviderOpenRouter:
		if baseURL == "" {
			return nil, fmt.Errorf("OPENROUTER_SERVICE_URL is required for OpenRouter provider")
		}
		return NewOpenRouterClient(baseURL, apiKey, timeout), nil

	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		return NewOpenAIClient(apiKey, timeout), nil

	case ProviderMock:
		return NewMockClient(), nil

	default:
		return nil, fmt.Errorf("unknown AI provider: %s (valid options: openrouter, openai, mock)", provider)
	}
}
