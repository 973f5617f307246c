package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chatrelay/chatrelay/internal/domain"
)

// OpenRouterClient talks to the OpenRouter relay service's /v2/chat endpoint.
type OpenRouterClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewOpenRouterClient(baseURL, apiKey string, timeout time.Duration) *OpenRouterClient {
	return &OpenRouterClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type openRouterHistoryEntry struct {
	Role    string `json:"Role"`
	Message string `json:"Message"`
}

type openRouterRequest struct {
	UserID    string                   `json:"UserId"`
	SessionID string                   `json:"SessionId"`
	History   []openRouterHistoryEntry `json:"History"`
	Pipeline  string                   `json:"Pipeline"`
	Query     string                   `json:"Query"`
}

type openRouterResponse struct {
	Response string `json:"Response"`
	Error    string `json:"Error,omitempty"`
}

func (c *OpenRouterClient) Chat(ctx context.Context, call domain.ChatCall) (*domain.ChatResult, error) {
	history := make([]openRouterHistoryEntry, 0, len(call.History))
	for _, msg := range call.History {
		history = append(history, openRouterHistoryEntry{Role: msg.Role, Message: msg.Content})
	}

	body, err := json.Marshal(openRouterRequest{
		UserID:    call.SessionID,
		SessionID: call.SessionID,
		History:   history,
		Pipeline:  call.Model,
		Query:     call.Prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result openRouterResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal chat response: %w", err)
	}

	if result.Error != "" {
		return nil, fmt.Errorf("chat API error: %s", result.Error)
	}

	return &domain.ChatResult{
		Text:      result.Response,
		Model:     call.Model,
		LatencyMS: time.Since(start).Milliseconds(),
	}, nil
}

func (c *OpenRouterClient) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}
