package store

import (
	"context"
	"errors"

	"github.com/chatrelay/chatrelay/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TenantStore struct {
	db *pgxpool.Pool
}

func NewTenantStore(db *pgxpool.Pool) *TenantStore {
	return &TenantStore{db: db}
}

const tenantColumns = `id, name, platform_type, monthly_quota, daily_quota,
	rate_limit, max_history, default_model, available_models, allow_model_switch,
	is_active, created_at, updated_at`

func scanTenant(row pgx.Row) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	err := row.Scan(
		&t.ID, &t.Name, &t.PlatformType, &t.MonthlyQuota, &t.DailyQuota,
		&t.RateLimit, &t.MaxHistory, &t.DefaultModel, &t.AvailableModels, &t.AllowModelSwitch,
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *TenantStore) Create(ctx context.Context, t *domain.Tenant) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO tenants (name, platform_type, monthly_quota, daily_quota,
		   rate_limit, max_history, default_model, available_models, allow_model_switch)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, is_active, created_at, updated_at`,
		t.Name, t.PlatformType, t.MonthlyQuota, t.DailyQuota,
		t.RateLimit, t.MaxHistory, t.DefaultModel, t.AvailableModels, t.AllowModelSwitch,
	).Scan(&t.ID, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
}

func (s *TenantStore) GetByID(ctx context.Context, id int64) (*domain.Tenant, error) {
	return scanTenant(s.db.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
}

func (s *TenantStore) GetByName(ctx context.Context, name string) (*domain.Tenant, error) {
	return scanTenant(s.db.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE name = $1`, name))
}

func (s *TenantStore) List(ctx context.Context, activeOnly bool) ([]domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY id`
	if activeOnly {
		query = `SELECT ` + tenantColumns + ` FROM tenants WHERE is_active ORDER BY id`
	}

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(
			&t.ID, &t.Name, &t.PlatformType, &t.MonthlyQuota, &t.DailyQuota,
			&t.RateLimit, &t.MaxHistory, &t.DefaultModel, &t.AvailableModels, &t.AllowModelSwitch,
			&t.IsActive, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// Update applies a partial update: nil fields keep their current value.
func (s *TenantStore) Update(ctx context.Context, id int64, u domain.TenantUpdate) (*domain.Tenant, error) {
	return scanTenant(s.db.QueryRow(ctx,
		`UPDATE tenants SET
		   name               = COALESCE($2, name),
		   platform_type      = COALESCE($3, platform_type),
		   monthly_quota      = COALESCE($4, monthly_quota),
		   daily_quota        = COALESCE($5, daily_quota),
		   rate_limit         = COALESCE($6, rate_limit),
		   max_history        = COALESCE($7, max_history),
		   default_model      = COALESCE($8, default_model),
		   available_models   = COALESCE($9, available_models),
		   allow_model_switch = COALESCE($10, allow_model_switch),
		   is_active          = COALESCE($11, is_active),
		   updated_at         = now()
		 WHERE id = $1
		 RETURNING `+tenantColumns,
		id, u.Name, u.PlatformType, u.MonthlyQuota, u.DailyQuota,
		u.RateLimit, u.MaxHistory, u.DefaultModel, u.AvailableModels, u.AllowModelSwitch,
		u.IsActive,
	))
}

// Deactivate soft-deletes a tenant. Rows are never hard-deleted while usage
// logs reference them.
func (s *TenantStore) Deactivate(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE tenants SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
