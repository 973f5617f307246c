package service

import (
	"context"
	"fmt"
	"time"

	"github.com/chatrelay/chatrelay/internal/domain"
	"go.uber.org/zap"
)

// QuotaError carries the status of the period that denied the request, so
// handlers can report used/limit/reset without a second lookup. It unwraps
// to domain.ErrQuotaExceeded for errors.Is checks.
type QuotaError struct {
	Status domain.QuotaStatus
}

func (e *QuotaError) Error() string {
	limit := int64(0)
	if e.Status.Limit != nil {
		limit = *e.Status.Limit
	}
	return fmt.Sprintf("%s quota exceeded: %d/%d used", e.Status.Period, e.Status.Used, limit)
}

func (e *QuotaError) Unwrap() error {
	return domain.ErrQuotaExceeded
}

// QuotaService enforces rolling-window quotas against the append-only usage
// log. A credential-level quota overrides the tenant quota for its period
// and is counted per credential; otherwise attempts are counted across the
// whole tenant. nil limits mean unlimited.
//
// Check and Record are separate steps with no reservation between them, so
// concurrent requests near the ceiling can each pass the check and land
// slightly over the limit. The overshoot is bounded by in-flight concurrency
// and every attempt is still logged.
type QuotaService struct {
	usage  domain.UsageStore
	logger *zap.Logger
	now    func() time.Time
}

func NewQuotaService(usage domain.UsageStore, logger *zap.Logger) *QuotaService {
	return &QuotaService{
		usage:  usage,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the service clock. Intended for tests.
func (s *QuotaService) SetClock(now func() time.Time) {
	s.now = now
}

// Check evaluates both quota periods for the credential/tenant pair and
// returns a *QuotaError for the first exhausted one. Daily is checked first:
// it is the tighter window and the more useful denial to report.
func (s *QuotaService) Check(ctx context.Context, credential *domain.Credential, tenant *domain.Tenant) error {
	for _, period := range []domain.QuotaPeriod{domain.PeriodDaily, domain.PeriodMonthly} {
		status, err := s.Status(ctx, credential, tenant, period)
		if err != nil {
			return fmt.Errorf("check %s quota: %w", period, err)
		}
		if !status.Allowed {
			return &QuotaError{Status: status}
		}
	}
	return nil
}

// Status computes the quota state for one period. The effective limit is the
// credential's own quota when set, falling back to the tenant's; the count
// scope follows the limit source.
func (s *QuotaService) Status(ctx context.Context, credential *domain.Credential, tenant *domain.Tenant, period domain.QuotaPeriod) (domain.QuotaStatus, error) {
	limit, credentialScoped := effectiveLimit(credential, tenant, period)
	if limit == nil {
		return domain.QuotaStatus{Period: period, Allowed: true, Remaining: -1}, nil
	}

	since := s.now().Add(-period.Window())

	var (
		used   int64
		oldest *time.Time
		err    error
	)
	if credentialScoped {
		used, err = s.usage.CountByCredentialSince(ctx, credential.ID, since)
		if err == nil && used > 0 {
			oldest, err = s.usage.OldestByCredentialSince(ctx, credential.ID, since)
		}
	} else {
		used, err = s.usage.CountByTenantSince(ctx, tenant.ID, since)
		if err == nil && used > 0 {
			oldest, err = s.usage.OldestByTenantSince(ctx, tenant.ID, since)
		}
	}
	if err != nil {
		return domain.QuotaStatus{}, err
	}

	status := domain.QuotaStatus{
		Period:    period,
		Allowed:   used < *limit,
		Limit:     limit,
		Used:      used,
		Remaining: max64(*limit-used, 0),
	}
	if oldest != nil {
		status.ResetAt = oldest.Add(period.Window())
	}
	return status, nil
}

// Record appends one usage row. Failures are logged but never propagated:
// a response already produced must not be failed retroactively over
// accounting.
func (s *QuotaService) Record(ctx context.Context, record *domain.UsageRecord) {
	if err := s.usage.Insert(ctx, record); err != nil {
		s.logger.Error("failed to record usage",
			zap.Int64("credential_id", record.CredentialID),
			zap.Int64("tenant_id", record.TenantID),
			zap.Error(err),
		)
	}
}

// TenantUsage returns the aggregate summary for a tenant over the window.
func (s *QuotaService) TenantUsage(ctx context.Context, tenantID int64, window time.Duration) (*domain.UsageSummary, error) {
	return s.usage.SummaryByTenant(ctx, tenantID, s.now().Add(-window))
}

// RecentUsage returns the most recent usage rows for a tenant.
func (s *QuotaService) RecentUsage(ctx context.Context, tenantID int64, limit int) ([]domain.UsageRecord, error) {
	return s.usage.RecentByTenant(ctx, tenantID, limit)
}

// effectiveLimit picks the limit for a period and reports whether it is
// scoped to the credential. A credential quota takes precedence over the
// tenant quota for that period.
func effectiveLimit(credential *domain.Credential, tenant *domain.Tenant, period domain.QuotaPeriod) (*int64, bool) {
	if credential != nil {
		if period == domain.PeriodDaily && credential.DailyQuota != nil {
			return credential.DailyQuota, true
		}
		if period == domain.PeriodMonthly && credential.MonthlyQuota != nil {
			return credential.MonthlyQuota, true
		}
	}
	if tenant != nil {
		if period == domain.PeriodDaily {
			return tenant.DailyQuota, false
		}
		return tenant.MonthlyQuota, false
	}
	return nil, false
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
