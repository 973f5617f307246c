package domain

import (
	"context"
	"time"
)

type TenantStore interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id int64) (*Tenant, error)
	GetByName(ctx context.Context, name string) (*Tenant, error)
	List(ctx context.Context, activeOnly bool) ([]Tenant, error)
	Update(ctx context.Context, id int64, u TenantUpdate) (*Tenant, error)
	Deactivate(ctx context.Context, id int64) error
}

type CredentialStore interface {
	Create(ctx context.Context, c *Credential) error
	GetByID(ctx context.Context, id int64) (*Credential, error)
	GetByHash(ctx context.Context, keyHash string) (*Credential, error)
	ListByTenant(ctx context.Context, tenantID int64) ([]Credential, error)
	TouchLastUsed(ctx context.Context, id int64) error
	Revoke(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// UsageStore is the append-only usage log. Count/Oldest queries are the only
// shapes the quota ledger needs: attempts within a rolling window, scoped to
// a credential or to a whole tenant.
type UsageStore interface {
	Insert(ctx context.Context, r *UsageRecord) error
	CountByCredentialSince(ctx context.Context, credentialID int64, since time.Time) (int64, error)
	CountByTenantSince(ctx context.Context, tenantID int64, since time.Time) (int64, error)
	OldestByCredentialSince(ctx context.Context, credentialID int64, since time.Time) (*time.Time, error)
	OldestByTenantSince(ctx context.Context, tenantID int64, since time.Time) (*time.Time, error)
	RecentByTenant(ctx context.Context, tenantID int64, limit int) ([]UsageRecord, error)
	SummaryByTenant(ctx context.Context, tenantID int64, since time.Time) (*UsageSummary, error)
}

// ChatCall is the request shape sent to the external AI service. The gateway
// never interprets the response content.
type ChatCall struct {
	SessionID string
	Model     string
	History   []Message
	Prompt    string
}

// ChatResult is the opaque outcome of an AI call.
type ChatResult struct {
	Text      string
	Model     string
	LatencyMS int64
}

// AIClient is the boundary to the external AI chat service.
type AIClient interface {
	Chat(ctx context.Context, call ChatCall) (*ChatResult, error)
	HealthCheck(ctx context.Context) bool
}
