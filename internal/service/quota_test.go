package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chatrelay/chatrelay/internal/domain"
	"go.uber.org/zap"
)

// mockUsageStore implements domain.UsageStore for testing.
type mockUsageStore struct {
	records []domain.UsageRecord
	nextID  int64
}

func newMockUsageStore() *mockUsageStore {
	return &mockUsageStore{}
}

func (m *mockUsageStore) Insert(ctx context.Context, r *domain.UsageRecord) error {
	m.nextID++
	r.ID = m.nextID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	m.records = append(m.records, *r)
	return nil
}

func (m *mockUsageStore) CountByCredentialSince(ctx context.Context, credentialID int64, since time.Time) (int64, error) {
	var n int64
	for _, r := range m.records {
		if r.CredentialID == credentialID && r.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (m *mockUsageStore) CountByTenantSince(ctx context.Context, tenantID int64, since time.Time) (int64, error) {
	var n int64
	for _, r := range m.records {
		if r.TenantID == tenantID && r.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (m *mockUsageStore) OldestByCredentialSince(ctx context.Context, credentialID int64, since time.Time) (*time.Time, error) {
	var oldest *time.Time
	for _, r := range m.records {
		if r.CredentialID == credentialID && r.CreatedAt.After(since) {
			if oldest == nil || r.CreatedAt.Before(*oldest) {
				t := r.CreatedAt
				oldest = &t
			}
		}
	}
	return oldest, nil
}

func (m *mockUsageStore) OldestByTenantSince(ctx context.Context, tenantID int64, since time.Time) (*time.Time, error) {
	var oldest *time.Time
	for _, r := range m.records {
		if r.TenantID == tenantID && r.CreatedAt.After(since) {
			if oldest == nil || r.CreatedAt.Before(*oldest) {
				t := r.CreatedAt
				oldest = &t
			}
		}
	}
	return oldest, nil
}

func (m *mockUsageStore) RecentByTenant(ctx context.Context, tenantID int64, limit int) ([]domain.UsageRecord, error) {
	var out []domain.UsageRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.records[i].TenantID == tenantID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

func (m *mockUsageStore) SummaryByTenant(ctx context.Context, tenantID int64, since time.Time) (*domain.UsageSummary, error) {
	s := &domain.UsageSummary{}
	var totalLatency int64
	for _, r := range m.records {
		if r.TenantID != tenantID || !r.CreatedAt.After(since) {
			continue
		}
		s.Total++
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
		totalLatency += r.LatencyMS
	}
	if s.Total > 0 {
		s.AvgLatencyMS = float64(totalLatency) / float64(s.Total)
	}
	return s, nil
}

func (m *mockUsageStore) seed(tenantID, credentialID int64, at time.Time, success bool) {
	m.nextID++
	m.records = append(m.records, domain.UsageRecord{
		ID:           m.nextID,
		CredentialID: credentialID,
		TenantID:     tenantID,
		Success:      success,
		CreatedAt:    at,
	})
}

func setupQuotaTest() (*QuotaService, *mockUsageStore, time.Time) {
	store := newMockUsageStore()
	svc := NewQuotaService(store, zap.NewNop())
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return now })
	return svc, store, now
}

func TestQuotaCheck_Unlimited(t *testing.T) {
	svc, store, now := setupQuotaTest()

	credential := &domain.Credential{ID: 1, TenantID: 100}
	tenant := &domain.Tenant{ID: 100} // no quotas set

	for i := 0; i < 100; i++ {
		store.seed(100, 1, now.Add(-time.Minute), true)
	}

	if err := svc.Check(context.Background(), credential, tenant); err != nil {
		t.Fatalf("unlimited tenant must never be denied, got %v", err)
	}

	status, err := svc.Status(context.Background(), credential, tenant, domain.PeriodDaily)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !status.Allowed || status.Remaining != -1 {
		t.Fatalf("expected unlimited status, got %+v", status)
	}
}

func TestQuotaCheck_FailedAttemptsCount(t *testing.T) {
	svc, store, now := setupQuotaTest()

	credential := &domain.Credential{ID: 1, TenantID: 100}
	tenant := &domain.Tenant{ID: 100, DailyQuota: int64Ptr(5)}

	// 4 successes + 1 failure inside the window: the ceiling is reached.
	for i := 0; i < 4; i++ {
		store.seed(100, 1, now.Add(-time.Hour), true)
	}
	store.seed(100, 1, now.Add(-time.Hour), false)

	err := svc.Check(context.Background(), credential, tenant)
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	var quotaErr *QuotaError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("expected *QuotaError, got %T", err)
	}
	if quotaErr.Status.Used != 5 || quotaErr.Status.Remaining != 0 {
		t.Fatalf("expected used=5 remaining=0, got %+v", quotaErr.Status)
	}
	if quotaErr.Status.Period != domain.PeriodDaily {
		t.Fatalf("expected daily denial, got %s", quotaErr.Status.Period)
	}
}

func TestQuotaCheck_RollingWindow(t *testing.T) {
	svc, store, now := setupQuotaTest()

	credential := &domain.Credential{ID: 1, TenantID: 100}
	tenant := &domain.Tenant{ID: 100, DailyQuota: int64Ptr(3)}

	// Old usage outside the 24h window must not count.
	for i := 0; i < 10; i++ {
		store.seed(100, 1, now.Add(-25*time.Hour), true)
	}
	store.seed(100, 1, now.Add(-time.Hour), true)

	if err := svc.Check(context.Background(), credential, tenant); err != nil {
		t.Fatalf("expected rolled-over usage to be forgotten, got %v", err)
	}

	status, _ := svc.Status(context.Background(), credential, tenant, domain.PeriodDaily)
	if status.Used != 1 || status.Remaining != 2 {
		t.Fatalf("expected used=1 remaining=2, got %+v", status)
	}
}

func TestQuotaCheck_ResetAt(t *testing.T) {
	svc, store, now := setupQuotaTest()

	credential := &domain.Credential{ID: 1, TenantID: 100}
	tenant := &domain.Tenant{ID: 100, DailyQuota: int64Ptr(2)}

	oldest := now.Add(-3 * time.Hour)
	store.seed(100, 1, oldest, true)
	store.seed(100, 1, now.Add(-time.Hour), true)

	status, err := svc.Status(context.Background(), credential, tenant, domain.PeriodDaily)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if status.Allowed {
		t.Fatal("expected quota exhausted")
	}
	want := oldest.Add(24 * time.Hour)
	if !status.ResetAt.Equal(want) {
		t.Fatalf("expected reset at %v, got %v", want, status.ResetAt)
	}
}

func TestQuotaCheck_CredentialOverride(t *testing.T) {
	svc, store, now := setupQuotaTest()

	// Credential 1 has its own daily ceiling of 2; the tenant allows 100.
	credential := &domain.Credential{ID: 1, TenantID: 100, DailyQuota: int64Ptr(2)}
	tenant := &domain.Tenant{ID: 100, DailyQuota: int64Ptr(100)}

	// Another credential's usage on the same tenant is irrelevant to the
	// override check.
	for i := 0; i < 50; i++ {
		store.seed(100, 2, now.Add(-time.Hour), true)
	}
	store.seed(100, 1, now.Add(-time.Hour), true)

	if err := svc.Check(context.Background(), credential, tenant); err != nil {
		t.Fatalf("expected 1/2 used to pass, got %v", err)
	}

	store.seed(100, 1, now.Add(-time.Minute), true)
	err := svc.Check(context.Background(), credential, tenant)
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected credential ceiling to deny, got %v", err)
	}
}

func TestQuotaCheck_MonthlyPeriod(t *testing.T) {
	svc, store, now := setupQuotaTest()

	credential := &domain.Credential{ID: 1, TenantID: 100}
	tenant := &domain.Tenant{ID: 100, MonthlyQuota: int64Ptr(5)}

	// Spread across the 30-day window but outside the daily one.
	for i := 0; i < 5; i++ {
		store.seed(100, 1, now.Add(-time.Duration(i+2)*24*time.Hour), true)
	}

	err := svc.Check(context.Background(), credential, tenant)
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected monthly denial, got %v", err)
	}

	var quotaErr *QuotaError
	if !errors.As(err, &quotaErr) || quotaErr.Status.Period != domain.PeriodMonthly {
		t.Fatalf("expected monthly period in denial, got %v", err)
	}
}

func TestQuotaRecord_AppendsRow(t *testing.T) {
	svc, store, _ := setupQuotaTest()

	svc.Record(context.Background(), &domain.UsageRecord{
		CredentialID: 1,
		TenantID:     100,
		Success:      true,
		LatencyMS:    42,
	})
	if len(store.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(store.records))
	}
	if store.records[0].ID == 0 {
		t.Fatal("expected assigned id")
	}
}
