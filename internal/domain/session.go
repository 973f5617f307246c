package domain

import "time"

// Message is one turn entry in a conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is one live conversation context between an end user and the
// gateway, scoped to a platform and (when tenant-scoped) a tenant. Sessions
// live only in process memory; the registry hands out copies and all
// mutation goes through registry methods.
type Session struct {
	// Key is the composite identity: platform:tenantID:userID when
	// tenant-scoped, platform:userID otherwise. The tenant component keeps
	// two tenants with the same end-user id fully isolated.
	Key string `json:"key"`
	// ID is the opaque identifier exposed on the API surface.
	ID string `json:"id"`

	Platform     string `json:"platform"`
	TenantID     *int64 `json:"tenant_id"`
	UserID       string `json:"user_id"`
	CredentialID *int64 `json:"credential_id"`

	Config PlatformConfig `json:"config"`
	Model  string         `json:"model"`

	History      []Message `json:"history"`
	MessageCount int       `json:"message_count"`

	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// IdleSince reports whether the session has been inactive longer than maxIdle.
func (s *Session) IdleSince(now time.Time, maxIdle time.Duration) bool {
	return now.Sub(s.LastActivity) > maxIdle
}
