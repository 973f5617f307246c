package domain

import "time"

// AccessTier controls what management operations a credential may perform.
type AccessTier string

const (
	TierUser     AccessTier = "user"
	TierTeamLead AccessTier = "team_lead"
	TierAdmin    AccessTier = "admin"
)

var tierRank = map[AccessTier]int{
	TierUser:     0,
	TierTeamLead: 1,
	TierAdmin:    2,
}

// AtLeast reports whether the tier grants everything min grants.
func (t AccessTier) AtLeast(min AccessTier) bool {
	return tierRank[t] >= tierRank[min]
}

func ValidAccessTier(s string) bool {
	switch AccessTier(s) {
	case TierUser, TierTeamLead, TierAdmin:
		return true
	}
	return false
}

// Credential is an API key tied to exactly one tenant. The secret is stored
// only as a sha256 hash plus a short visible prefix; the full key is shown
// exactly once at creation.
type Credential struct {
	ID        int64      `json:"id"`
	TenantID  int64      `json:"tenant_id"`
	KeyHash   string     `json:"-"`
	KeyPrefix string     `json:"key_prefix"`
	Name      string     `json:"name"`
	Tier      AccessTier `json:"tier"`

	// Quota overrides. nil = use the tenant's quotas.
	MonthlyQuota *int64 `json:"monthly_quota"`
	DailyQuota   *int64 `json:"daily_quota"`

	IsActive   bool       `json:"is_active"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	ExpiresAt  *time.Time `json:"expires_at"` // nil = never expires
}

// Expired reports whether the credential is past its expiry timestamp.
func (c *Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}
