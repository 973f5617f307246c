package service

import (
	"context"
	"fmt"

	"github.com/chatrelay/chatrelay/internal/domain"
	"go.uber.org/zap"
)

// ChatRequest is one inbound chat turn after authentication.
type ChatRequest struct {
	Platform string `json:"platform"`
	UserID   string `json:"user_id"`
	Message  string `json:"message"`
	// Model optionally switches the session model for this and subsequent
	// turns. Subject to the effective config's switch permission.
	Model string `json:"model,omitempty"`
}

// ChatResponse is the outcome of a dispatched turn.
type ChatResponse struct {
	Response      string `json:"response"`
	Model         string `json:"model"`
	SessionID     string `json:"session_id"`
	MessageCount  int    `json:"message_count"`
	RateRemaining int    `json:"rate_remaining"`
	LatencyMS     int64  `json:"latency_ms"`
}

// ChatService sequences one chat turn: session lookup, rate limit, quota
// check, upstream AI call, then history append and usage recording. The
// upstream call happens outside the registry lock; other sessions keep
// flowing while one waits on the AI service.
type ChatService struct {
	registry *SessionRegistry
	quota    *QuotaService
	ai       domain.AIClient
	logger   *zap.Logger
}

func NewChatService(registry *SessionRegistry, quota *QuotaService, ai domain.AIClient, logger *zap.Logger) *ChatService {
	return &ChatService{
		registry: registry,
		quota:    quota,
		ai:       ai,
		logger:   logger,
	}
}

// Process runs the dispatch pipeline for one turn. Rate-limited and
// quota-denied requests are rejected before the upstream call and leave no
// usage row; once the upstream is attempted, the attempt is recorded whether
// it succeeded or not.
func (s *ChatService) Process(ctx context.Context, credential *domain.Credential, tenant *domain.Tenant, req ChatRequest) (*ChatResponse, error) {
	if !tenant.IsActive {
		return nil, fmt.Errorf("tenant %d: %w", tenant.ID, domain.ErrTenantInactive)
	}

	session, err := s.registry.GetOrCreate(req.Platform, tenant, req.UserID, &credential.ID)
	if err != nil {
		return nil, err
	}

	if req.Model != "" && req.Model != session.Model {
		if err := s.registry.SwitchModel(session.Key, req.Model, &credential.ID); err != nil {
			return nil, err
		}
		session.Model = req.Model
	}

	allowed, remaining, err := s.registry.AllowRequest(session.Key)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("session %s: %w", session.ID, domain.ErrRateLimited)
	}

	if err := s.quota.Check(ctx, credential, tenant); err != nil {
		return nil, err
	}

	result, aiErr := s.ai.Chat(ctx, domain.ChatCall{
		SessionID: session.ID,
		Model:     session.Model,
		History:   session.History,
		Prompt:    req.Message,
	})

	record := &domain.UsageRecord{
		CredentialID: credential.ID,
		TenantID:     tenant.ID,
		SessionKey:   session.Key,
		Platform:     req.Platform,
		Model:        session.Model,
		Success:      aiErr == nil,
	}
	if aiErr != nil {
		record.ErrorMessage = aiErr.Error()
		s.quota.Record(ctx, record)
		s.logger.Warn("upstream AI call failed",
			zap.String("session_id", session.ID[:12]),
			zap.String("model", session.Model),
			zap.Error(aiErr),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, aiErr)
	}

	record.LatencyMS = result.LatencyMS
	s.quota.Record(ctx, record)

	if err := s.registry.AppendTurn(session.Key, req.Message, result.Text); err != nil {
		// Session swept between the AI call and the append. The response is
		// still valid; the next turn recreates the context.
		s.logger.Warn("session gone before history append",
			zap.String("session_id", session.ID[:12]))
	}

	snapshot, _ := s.registry.Snapshot(session.Key)

	return &ChatResponse{
		Response:      result.Text,
		Model:         result.Model,
		SessionID:     session.ID,
		MessageCount:  snapshot.MessageCount,
		RateRemaining: remaining,
		LatencyMS:     result.LatencyMS,
	}, nil
}
