package store

import (
	"context"
	"time"

	"github.com/chatrelay/chatrelay/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsageStore struct {
	db *pgxpool.Pool
}

func NewUsageStore(db *pgxpool.Pool) *UsageStore {
	return &UsageStore{db: db}
}

func (s *UsageStore) Insert(ctx context.Context, r *domain.UsageRecord) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO usage_records (credential_id, tenant_id, session_key, platform,
		   model, success, error_message, latency_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		r.CredentialID, r.TenantID, r.SessionKey, r.Platform,
		r.Model, r.Success, r.ErrorMessage, r.LatencyMS,
	).Scan(&r.ID, &r.CreatedAt)
}

func (s *UsageStore) CountByCredentialSince(ctx context.Context, credentialID int64, since time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM usage_records WHERE credential_id = $1 AND created_at >= $2`,
		credentialID, since,
	).Scan(&count)
	return count, err
}

func (s *UsageStore) CountByTenantSince(ctx context.Context, tenantID int64, since time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM usage_records WHERE tenant_id = $1 AND created_at >= $2`,
		tenantID, since,
	).Scan(&count)
	return count, err
}

func (s *UsageStore) OldestByCredentialSince(ctx context.Context, credentialID int64, since time.Time) (*time.Time, error) {
	var oldest *time.Time
	err := s.db.QueryRow(ctx,
		`SELECT MIN(created_at) FROM usage_records WHERE credential_id = $1 AND created_at >= $2`,
		credentialID, since,
	).Scan(&oldest)
	return oldest, err
}

func (s *UsageStore) OldestByTenantSince(ctx context.Context, tenantID int64, since time.Time) (*time.Time, error) {
	var oldest *time.Time
	err := s.db.QueryRow(ctx,
		`SELECT MIN(created_at) FROM usage_records WHERE tenant_id = $1 AND created_at >= $2`,
		tenantID, since,
	).Scan(&oldest)
	return oldest, err
}

func (s *UsageStore) RecentByTenant(ctx context.Context, tenantID int64, limit int) ([]domain.UsageRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, credential_id, tenant_id, session_key, platform, model,
		   success, error_message, latency_ms, created_at
		 FROM usage_records WHERE tenant_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		tenantID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.UsageRecord
	for rows.Next() {
		var r domain.UsageRecord
		if err := rows.Scan(
			&r.ID, &r.CredentialID, &r.TenantID, &r.SessionKey, &r.Platform, &r.Model,
			&r.Success, &r.ErrorMessage, &r.LatencyMS, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *UsageStore) SummaryByTenant(ctx context.Context, tenantID int64, since time.Time) (*domain.UsageSummary, error) {
	sum := &domain.UsageSummary{}
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*),
		   COUNT(*) FILTER (WHERE success),
		   COUNT(*) FILTER (WHERE NOT success),
		   COALESCE(AVG(latency_ms), 0)
		 FROM usage_records WHERE tenant_id = $1 AND created_at >= $2`,
		tenantID, since,
	).Scan(&sum.Total, &sum.Succeeded, &sum.Failed, &sum.AvgLatencyMS)
	if err != nil {
		return nil, err
	}
	return sum, nil
}
