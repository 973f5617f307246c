package store

import (
	"context"
	"errors"

	"github.com/chatrelay/chatrelay/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CredentialStore struct {
	db *pgxpool.Pool
}

func NewCredentialStore(db *pgxpool.Pool) *CredentialStore {
	return &CredentialStore{db: db}
}

const credentialColumns = `id, tenant_id, key_hash, key_prefix, name, tier,
	monthly_quota, daily_quota, is_active, created_by, created_at, last_used_at, expires_at`

func scanCredential(row pgx.Row) (*domain.Credential, error) {
	c := &domain.Credential{}
	err := row.Scan(
		&c.ID, &c.TenantID, &c.KeyHash, &c.KeyPrefix, &c.Name, &c.Tier,
		&c.MonthlyQuota, &c.DailyQuota, &c.IsActive, &c.CreatedBy,
		&c.CreatedAt, &c.LastUsedAt, &c.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *CredentialStore) Create(ctx context.Context, c *domain.Credential) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO credentials (tenant_id, key_hash, key_prefix, name, tier,
		   monthly_quota, daily_quota, created_by, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, is_active, created_at`,
		c.TenantID, c.KeyHash, c.KeyPrefix, c.Name, c.Tier,
		c.MonthlyQuota, c.DailyQuota, c.CreatedBy, c.ExpiresAt,
	).Scan(&c.ID, &c.IsActive, &c.CreatedAt)
}

func (s *CredentialStore) GetByID(ctx context.Context, id int64) (*domain.Credential, error) {
	return scanCredential(s.db.QueryRow(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE id = $1`, id))
}

func (s *CredentialStore) GetByHash(ctx context.Context, keyHash string) (*domain.Credential, error) {
	return scanCredential(s.db.QueryRow(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE key_hash = $1`, keyHash))
}

func (s *CredentialStore) ListByTenant(ctx context.Context, tenantID int64) ([]domain.Credential, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE tenant_id = $1 ORDER BY id`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []domain.Credential
	for rows.Next() {
		var c domain.Credential
		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.KeyHash, &c.KeyPrefix, &c.Name, &c.Tier,
			&c.MonthlyQuota, &c.DailyQuota, &c.IsActive, &c.CreatedBy,
			&c.CreatedAt, &c.LastUsedAt, &c.ExpiresAt,
		); err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

func (s *CredentialStore) TouchLastUsed(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx,
		`UPDATE credentials SET last_used_at = now() WHERE id = $1`, id)
	return err
}

// Revoke soft-deactivates a credential.
func (s *CredentialStore) Revoke(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE credentials SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete permanently removes a credential.
func (s *CredentialStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
