package service

import (
	"fmt"

	"github.com/chatrelay/chatrelay/internal/domain"
	"go.uber.org/zap"
)

// FallbackPolicy controls how the resolver treats a platform identifier it
// cannot map to a platform type.
type FallbackPolicy string

const (
	// PolicyFallback resolves unknown platforms to the private base config
	// and logs a warning.
	PolicyFallback FallbackPolicy = "fallback"
	// PolicyStrict rejects unknown platforms with ErrUnknownPlatform.
	PolicyStrict FallbackPolicy = "strict"
)

// PlatformResolver merges platform-type base configs with per-tenant
// overrides into one effective config. Override fields are independent:
// each non-nil tenant field replaces the corresponding base field.
type PlatformResolver struct {
	public  domain.PlatformConfig
	private domain.PlatformConfig

	// platformTypes maps platform identifiers (e.g. "telegram", "internal")
	// to their base type for requests with no tenant record.
	platformTypes map[string]domain.PlatformType

	policy FallbackPolicy
	logger *zap.Logger
}

func NewPlatformResolver(
	public, private domain.PlatformConfig,
	publicPlatforms, privatePlatforms []string,
	policy FallbackPolicy,
	logger *zap.Logger,
) *PlatformResolver {
	types := make(map[string]domain.PlatformType)
	for _, p := range publicPlatforms {
		types[p] = domain.PlatformPublic
	}
	for _, p := range privatePlatforms {
		types[p] = domain.PlatformPrivate
	}

	public.Type = domain.PlatformPublic
	private.Type = domain.PlatformPrivate

	return &PlatformResolver{
		public:        public,
		private:       private,
		platformTypes: types,
		policy:        policy,
		logger:        logger,
	}
}

// Base returns the base config for a platform type.
func (r *PlatformResolver) Base(pt domain.PlatformType) domain.PlatformConfig {
	if pt == domain.PlatformPublic {
		return r.public
	}
	return r.private
}

// TypeOf maps a platform identifier to its platform type. Unknown platforms
// follow the configured policy: fallback resolves to private with a logged
// warning, strict returns ErrUnknownPlatform.
func (r *PlatformResolver) TypeOf(platform string) (domain.PlatformType, error) {
	if pt, ok := r.platformTypes[platform]; ok {
		return pt, nil
	}
	if r.policy == PolicyStrict {
		return "", fmt.Errorf("platform %q: %w", platform, domain.ErrUnknownPlatform)
	}
	r.logger.Warn("unknown platform, falling back to private base config",
		zap.String("platform", platform))
	return domain.PlatformPrivate, nil
}

// Resolve produces the effective config for a request. When a tenant is
// present its platform type selects the base and its overrides are applied;
// otherwise the platform identifier alone selects the base.
func (r *PlatformResolver) Resolve(platform string, tenant *domain.Tenant) (domain.PlatformConfig, error) {
	if tenant == nil {
		pt, err := r.TypeOf(platform)
		if err != nil {
			return domain.PlatformConfig{}, err
		}
		return r.Base(pt), nil
	}
	return Merge(r.Base(tenant.PlatformType), tenant), nil
}

// Merge applies tenant overrides onto a base config. Each field is
// independent; the result is always fully populated.
func Merge(base domain.PlatformConfig, tenant *domain.Tenant) domain.PlatformConfig {
	cfg := base
	if tenant == nil {
		return cfg
	}
	if tenant.RateLimit != nil {
		cfg.RateLimit = *tenant.RateLimit
	}
	if tenant.MaxHistory != nil {
		cfg.MaxHistory = *tenant.MaxHistory
	}
	if tenant.DefaultModel != nil {
		cfg.DefaultModel = *tenant.DefaultModel
	}
	if tenant.AvailableModels != nil {
		cfg.AvailableModels = tenant.AvailableModels
	}
	if tenant.AllowModelSwitch != nil {
		cfg.AllowModelSwitch = *tenant.AllowModelSwitch
	}
	return cfg
}
