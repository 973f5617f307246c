package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/chatrelay/chatrelay/internal/domain"
	"go.uber.org/zap"
)

// rateWindow is the length of the sliding rate-limit window.
const rateWindow = time.Minute

var ErrSessionNotFound = errors.New("session not found")

// liveSession is the canonical in-registry state. The embedded Session is
// what callers get copies of; the rate window stays internal.
type liveSession struct {
	domain.Session
	window []time.Time
}

// SessionRegistry is the single shared mutable resource of the gateway: an
// in-process map from composite identity to one live conversation context.
// All access goes through the mutex; callers receive copies and mutate only
// through registry methods. The upstream AI call is never made while the
// lock is held.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*liveSession

	resolver *PlatformResolver
	logger   *zap.Logger
	now      func() time.Time
}

func NewSessionRegistry(resolver *PlatformResolver, logger *zap.Logger) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*liveSession),
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the registry clock. Intended for tests.
func (r *SessionRegistry) SetClock(now func() time.Time) {
	r.now = now
}

// SessionKey builds the composite identity for a conversation context. The
// tenant id is part of the key whenever the request is tenant-scoped: two
// tenants sharing an end-user id must never collide.
func SessionKey(platform string, tenantID *int64, userID string) string {
	if tenantID != nil {
		return platform + ":" + strconv.FormatInt(*tenantID, 10) + ":" + userID
	}
	return platform + ":" + userID
}

func sessionID(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

func sameOwner(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// GetOrCreate returns the context for the given identity, creating it with a
// freshly resolved config on first use. A hit under a different credential
// is an isolation violation and fails with ErrAccessDenied rather than
// silently handing over the conversation.
func (r *SessionRegistry) GetOrCreate(platform string, tenant *domain.Tenant, userID string, credentialID *int64) (domain.Session, error) {
	var tenantID *int64
	if tenant != nil {
		tenantID = &tenant.ID
	}
	key := SessionKey(platform, tenantID, userID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[key]; ok {
		if !sameOwner(s.CredentialID, credentialID) {
			return domain.Session{}, fmt.Errorf("session %s: %w", s.ID, domain.ErrAccessDenied)
		}
		s.LastActivity = r.now()
		return copySession(s), nil
	}

	cfg, err := r.resolver.Resolve(platform, tenant)
	if err != nil {
		return domain.Session{}, err
	}

	now := r.now()
	s := &liveSession{
		Session: domain.Session{
			Key:          key,
			ID:           sessionID(key),
			Platform:     platform,
			TenantID:     tenantID,
			UserID:       userID,
			CredentialID: credentialID,
			Config:       cfg,
			Model:        cfg.DefaultModel,
			CreatedAt:    now,
			LastActivity: now,
		},
	}
	r.sessions[key] = s

	r.logger.Info("created session",
		zap.String("session_id", s.ID[:12]),
		zap.String("platform", platform),
		zap.Int64p("tenant_id", tenantID),
	)
	return copySession(s), nil
}

// Snapshot returns a copy of the context for the given key, if present.
func (r *SessionRegistry) Snapshot(key string) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return domain.Session{}, false
	}
	return copySession(s), true
}

// GetByID returns a copy of the context with the given opaque id.
func (r *SessionRegistry) GetByID(id string) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.ID == id {
			return copySession(s), true
		}
	}
	return domain.Session{}, false
}

// AllowRequest applies the sliding 60s window against the session's
// effective rate limit. The request timestamp is only appended when allowed,
// so a throttled caller does not extend its own penalty.
func (r *SessionRegistry) AllowRequest(key string) (bool, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return false, 0, ErrSessionNotFound
	}

	now := r.now()
	cutoff := now.Add(-rateWindow)
	kept := s.window[:0]
	for _, t := range s.window {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.window = kept

	if len(s.window) >= s.Config.RateLimit {
		return false, 0, nil
	}

	s.window = append(s.window, now)
	return true, s.Config.RateLimit - len(s.window), nil
}

// AppendTurn appends a user/assistant message pair, bumps the lifetime
// counter, and trims the stored history to the effective max-history with
// oldest-first eviction.
func (r *SessionRegistry) AppendTurn(key, userMsg, assistantMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return ErrSessionNotFound
	}

	s.History = append(s.History,
		domain.Message{Role: "user", Content: userMsg},
		domain.Message{Role: "assistant", Content: assistantMsg},
	)
	s.MessageCount += 2
	s.LastActivity = r.now()

	if max := s.Config.MaxHistory; len(s.History) > max {
		s.History = append(s.History[:0:0], s.History[len(s.History)-max:]...)
	}
	return nil
}

// SwitchModel changes the session's active model, subject to the effective
// config's switch permission and model list.
func (r *SessionRegistry) SwitchModel(key, model string, credentialID *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return ErrSessionNotFound
	}
	if !sameOwner(s.CredentialID, credentialID) {
		return fmt.Errorf("session %s: %w", s.ID, domain.ErrAccessDenied)
	}
	if !s.Config.AllowModelSwitch {
		return domain.ErrModelSwitchNotAllowed
	}
	if !s.Config.ModelAvailable(model) {
		return fmt.Errorf("%q: %w", model, domain.ErrModelNotAvailable)
	}

	s.Model = model
	s.LastActivity = r.now()
	return nil
}

// ClearHistory empties the in-context history. The lifetime message counter
// is preserved.
func (r *SessionRegistry) ClearHistory(key string, credentialID *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return ErrSessionNotFound
	}
	if !sameOwner(s.CredentialID, credentialID) {
		return fmt.Errorf("session %s: %w", s.ID, domain.ErrAccessDenied)
	}

	s.History = nil
	s.LastActivity = r.now()
	return nil
}

// DeleteIfOwned removes the context if the caller's credential owns it.
// Returns false without error when no such context exists.
func (r *SessionRegistry) DeleteIfOwned(key string, credentialID *int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return false, nil
	}
	if !sameOwner(s.CredentialID, credentialID) {
		return false, fmt.Errorf("session %s: %w", s.ID, domain.ErrAccessDenied)
	}

	delete(r.sessions, key)
	r.logger.Info("deleted session", zap.String("session_id", s.ID[:12]))
	return true, nil
}

// DeleteByID force-removes a context regardless of ownership. Admin surface
// only.
func (r *SessionRegistry) DeleteByID(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, s := range r.sessions {
		if s.ID == id {
			delete(r.sessions, key)
			r.logger.Info("admin deleted session", zap.String("session_id", id[:12]))
			return true
		}
	}
	return false
}

// ListByTenant returns copies of all contexts owned by the tenant.
func (r *SessionRegistry) ListByTenant(tenantID int64) []domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Session
	for _, s := range r.sessions {
		if s.TenantID != nil && *s.TenantID == tenantID {
			out = append(out, copySession(s))
		}
	}
	return out
}

// List returns copies of all contexts, optionally filtered by platform.
func (r *SessionRegistry) List(platform string) []domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Session
	for _, s := range r.sessions {
		if platform != "" && s.Platform != platform {
			continue
		}
		out = append(out, copySession(s))
	}
	return out
}

// SweepIdle removes every context idle longer than maxIdle and returns the
// count removed. Holding the registry lock makes the sweep safe against
// concurrent traffic: a context being mutated cannot be mid-removal.
func (r *SessionRegistry) SweepIdle(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for key, s := range r.sessions {
		if s.IdleSince(now, maxIdle) {
			delete(r.sessions, key)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info("swept idle sessions", zap.Int("count", removed))
	}
	return removed
}

// Count returns the number of live contexts.
func (r *SessionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CountActive returns the number of contexts active within the window.
func (r *SessionRegistry) CountActive(window time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	n := 0
	for _, s := range r.sessions {
		if !s.IdleSince(now, window) {
			n++
		}
	}
	return n
}

func copySession(s *liveSession) domain.Session {
	out := s.Session
	out.History = append([]domain.Message(nil), s.History...)
	out.Config.AvailableModels = append([]string(nil), s.Config.AvailableModels...)
	return out
}
