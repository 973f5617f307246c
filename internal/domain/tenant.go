package domain

import "time"

// PlatformType classifies how a platform is exposed: public platforms serve
// anonymous end users behind a shared bot, private platforms are dedicated
// per-tenant integrations with authenticated callers.
type PlatformType string

const (
	PlatformPublic  PlatformType = "public"
	PlatformPrivate PlatformType = "private"
)

func ValidPlatformType(s string) bool {
	switch PlatformType(s) {
	case PlatformPublic, PlatformPrivate:
		return true
	}
	return false
}

// Tenant is the organizational boundary that owns credentials and quotas.
// Override fields are nullable: nil means "inherit the platform-type default".
type Tenant struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	PlatformType PlatformType `json:"platform_type"`

	// Quota ceilings. nil = unlimited.
	MonthlyQuota *int64 `json:"monthly_quota"`
	DailyQuota   *int64 `json:"daily_quota"`

	// Per-tenant config overrides. nil = inherit the base config.
	RateLimit        *int     `json:"rate_limit"`
	MaxHistory       *int     `json:"max_history"`
	DefaultModel     *string  `json:"default_model"`
	AvailableModels  []string `json:"available_models"`
	AllowModelSwitch *bool    `json:"allow_model_switch"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TenantUpdate is a partial update: nil fields are left unchanged.
type TenantUpdate struct {
	Name             *string
	PlatformType     *PlatformType
	MonthlyQuota     *int64
	DailyQuota       *int64
	RateLimit        *int
	MaxHistory       *int
	DefaultModel     *string
	AvailableModels  []string
	AllowModelSwitch *bool
	IsActive         *bool
}

// PlatformConfig is the fully-resolved set of behavioral limits for a
// conversation: platform-type defaults merged with tenant overrides. Every
// field is populated after resolution.
type PlatformConfig struct {
	Type             PlatformType `json:"type"`
	RateLimit        int          `json:"rate_limit"` // requests per minute
	MaxHistory       int          `json:"max_history"`
	DefaultModel     string       `json:"default_model"`
	AvailableModels  []string     `json:"available_models"`
	AllowModelSwitch bool         `json:"allow_model_switch"`
}

// ModelAvailable reports whether the config permits the given model.
func (c PlatformConfig) ModelAvailable(model string) bool {
	for _, m := range c.AvailableModels {
		if m == model {
			return true
		}
	}
	return false
}
