package service

import (
	"errors"
	"testing"

	"github.com/chatrelay/chatrelay/internal/domain"
	"go.uber.org/zap"
)

func testResolver(policy FallbackPolicy) *PlatformResolver {
	public := domain.PlatformConfig{
		RateLimit:        20,
		MaxHistory:       10,
		DefaultModel:     "google/gemini-2.0-flash-001",
		AvailableModels:  []string{"google/gemini-2.0-flash-001"},
		AllowModelSwitch: false,
	}
	private := domain.PlatformConfig{
		RateLimit:        60,
		MaxHistory:       30,
		DefaultModel:     "openai/gpt-4o",
		AvailableModels:  []string{"openai/gpt-4o", "anthropic/claude-sonnet-4"},
		AllowModelSwitch: true,
	}
	return NewPlatformResolver(public, private,
		[]string{"telegram"}, []string{"internal"},
		policy, zap.NewNop())
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func TestResolve_NoTenant_PublicPlatform(t *testing.T) {
	cfg, err := testResolver(PolicyFallback).Resolve("telegram", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Type != domain.PlatformPublic {
		t.Fatalf("expected public type, got %s", cfg.Type)
	}
	if cfg.RateLimit != 20 || cfg.MaxHistory != 10 {
		t.Fatalf("expected public base limits, got rate=%d history=%d", cfg.RateLimit, cfg.MaxHistory)
	}
	if cfg.AllowModelSwitch {
		t.Fatal("public base must not allow model switch")
	}
}

func TestResolve_NoTenant_PrivatePlatform(t *testing.T) {
	cfg, err := testResolver(PolicyFallback).Resolve("internal", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Type != domain.PlatformPrivate {
		t.Fatalf("expected private type, got %s", cfg.Type)
	}
	if cfg.RateLimit != 60 || cfg.MaxHistory != 30 {
		t.Fatalf("expected private base limits, got rate=%d history=%d", cfg.RateLimit, cfg.MaxHistory)
	}
}

func TestResolve_UnknownPlatform_Fallback(t *testing.T) {
	cfg, err := testResolver(PolicyFallback).Resolve("slack", nil)
	if err != nil {
		t.Fatalf("expected fallback, got %v", err)
	}
	if cfg.Type != domain.PlatformPrivate {
		t.Fatalf("expected private fallback, got %s", cfg.Type)
	}
}

func TestResolve_UnknownPlatform_Strict(t *testing.T) {
	_, err := testResolver(PolicyStrict).Resolve("slack", nil)
	if !errors.Is(err, domain.ErrUnknownPlatform) {
		t.Fatalf("expected ErrUnknownPlatform, got %v", err)
	}
}

func TestResolve_TenantOverridesApplyIndependently(t *testing.T) {
	// Only rate_limit overridden; everything else inherits the private base.
	tenant := &domain.Tenant{
		ID:           100,
		PlatformType: domain.PlatformPrivate,
		RateLimit:    intPtr(120),
	}

	cfg, err := testResolver(PolicyFallback).Resolve("internal", tenant)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.RateLimit != 120 {
		t.Fatalf("expected overridden rate 120, got %d", cfg.RateLimit)
	}
	if cfg.MaxHistory != 30 {
		t.Fatalf("expected inherited history 30, got %d", cfg.MaxHistory)
	}
	if cfg.DefaultModel != "openai/gpt-4o" {
		t.Fatalf("expected inherited model, got %s", cfg.DefaultModel)
	}
	if !cfg.AllowModelSwitch {
		t.Fatal("expected inherited switch permission")
	}
}

func TestResolve_TenantFullOverride(t *testing.T) {
	tenant := &domain.Tenant{
		ID:               200,
		PlatformType:     domain.PlatformPublic,
		RateLimit:        intPtr(5),
		MaxHistory:       intPtr(4),
		DefaultModel:     strPtr("custom/model"),
		AvailableModels:  []string{"custom/model", "other/model"},
		AllowModelSwitch: boolPtr(true),
	}

	cfg, err := testResolver(PolicyFallback).Resolve("telegram", tenant)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Type != domain.PlatformPublic {
		t.Fatalf("expected public base, got %s", cfg.Type)
	}
	if cfg.RateLimit != 5 || cfg.MaxHistory != 4 {
		t.Fatalf("expected overridden limits, got rate=%d history=%d", cfg.RateLimit, cfg.MaxHistory)
	}
	if cfg.DefaultModel != "custom/model" {
		t.Fatalf("expected overridden model, got %s", cfg.DefaultModel)
	}
	if !cfg.ModelAvailable("other/model") {
		t.Fatal("expected overridden model list")
	}
	if !cfg.AllowModelSwitch {
		t.Fatal("expected overridden switch permission")
	}
}

func TestResolve_TenantPlatformTypeSelectsBase(t *testing.T) {
	// A private tenant on an identifier mapped public still gets the private
	// base: the tenant's own platform type wins.
	tenant := &domain.Tenant{ID: 300, PlatformType: domain.PlatformPrivate}

	cfg, err := testResolver(PolicyFallback).Resolve("telegram", tenant)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Type != domain.PlatformPrivate {
		t.Fatalf("expected private base for private tenant, got %s", cfg.Type)
	}
	if cfg.RateLimit != 60 {
		t.Fatalf("expected private rate 60, got %d", cfg.RateLimit)
	}
}

func TestMerge_NilTenant(t *testing.T) {
	base := domain.PlatformConfig{RateLimit: 20, MaxHistory: 10, DefaultModel: "m"}
	cfg := Merge(base, nil)
	if cfg.RateLimit != 20 || cfg.MaxHistory != 10 || cfg.DefaultModel != "m" {
		t.Fatalf("expected base returned unchanged, got %+v", cfg)
	}
}
