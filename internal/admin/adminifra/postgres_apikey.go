package adminifra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/giro-sh/license-server/internal/admin"
	"github.com/giro-sh/license-server/internal/errx"
	"github.com/giro-sh/license-server/internal/kernel"
	"github.com/jmoiron/sqlx"
)

type PostgresApiKeyRepository struct {
	db *sqlx.DB
}

func NewPostgresApiKeyRepository(db *sqlx.DB) admin.ApiKeyRepository {
	return &PostgresApiKeyRepository{db: db}
}

func (r *PostgresApiKeyRepository) ex(ctx context.Context) sqlx.ExtContext {
	return kernel.Executor(ctx, r.db)
}

func (r *PostgresApiKeyRepository) Create(ctx context.Context, k admin.ApiKey) error {
	query := `
		INSERT INTO api_keys (id, admin_id, key_hash, prefix, name, is_revoked, last_used_at, created_at)
		VALUES (:id, :admin_id, :key_hash, :prefix, :name, :is_revoked, :last_used_at, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.ex(ctx), query, toAKPersistence(k)); err != nil {
		return errx.Wrap(err, "failed to create api key", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresApiKeyRepository) FindByID(ctx context.Context, id string) (*admin.ApiKey, error) {
	var row akPersistence
	query := `SELECT * FROM api_keys WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.ex(ctx), &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, admin.ErrAPIKeyNotFound()
		}
		return nil, errx.Wrap(err, "failed to find api key by id", errx.TypeInternal)
	}
	k := toAKDomain(row)
	return &k, nil
}

func (r *PostgresApiKeyRepository) FindByHash(ctx context.Context, keyHash string) (*admin.ApiKey, error) {
	var row akPersistence
	query := `SELECT * FROM api_keys WHERE key_hash = $1`
	if err := sqlx.GetContext(ctx, r.ex(ctx), &row, query, keyHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to find api key by hash", errx.TypeInternal)
	}
	k := toAKDomain(row)
	return &k, nil
}

func (r *PostgresApiKeyRepository) ListForAdmin(ctx context.Context, adminID kernel.AdminID) ([]admin.ApiKey, error) {
	var rows []akPersistence
	query := `SELECT * FROM api_keys WHERE admin_id = $1 ORDER BY created_at DESC`
	if err := sqlx.SelectContext(ctx, r.ex(ctx), &rows, query, adminID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to list api keys for admin", errx.TypeInternal)
	}
	out := make([]admin.ApiKey, len(rows))
	for i, row := range rows {
		out[i] = toAKDomain(row)
	}
	return out, nil
}

func (r *PostgresApiKeyRepository) Revoke(ctx context.Context, id string) error {
	query := `UPDATE api_keys SET is_revoked = true WHERE id = $1`
	res, err := r.ex(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return errx.Wrap(err, "failed to revoke api key", errx.TypeInternal)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to confirm api key revocation", errx.TypeInternal)
	}
	if n == 0 {
		return admin.ErrAPIKeyNotFound()
	}
	return nil
}

func (r *PostgresApiKeyRepository) TouchLastUsed(ctx context.Context, id string) error {
	query := `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`
	if _, err := r.ex(ctx).ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return errx.Wrap(err, "failed to touch api key last used", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresApiKeyRepository) DeleteRevokedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM api_keys WHERE is_revoked = true AND created_at < $1`
	res, err := r.ex(ctx).ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, errx.Wrap(err, "failed to delete revoked api keys", errx.TypeInternal)
	}
	return res.RowsAffected()
}

type akPersistence struct {
	ID         string         `db:"id"`
	AdminID    string         `db:"admin_id"`
	KeyHash    string         `db:"key_hash"`
	Prefix     string         `db:"prefix"`
	Name       string         `db:"name"`
	IsRevoked  bool           `db:"is_revoked"`
	LastUsedAt sql.NullTime   `db:"last_used_at"`
	CreatedAt  time.Time      `db:"created_at"`
}

func toAKPersistence(k admin.ApiKey) akPersistence {
	p := akPersistence{
		ID:        k.ID,
		AdminID:   k.AdminID.String(),
		KeyHash:   k.KeyHash,
		Prefix:    k.Prefix,
		Name:      k.Name,
		IsRevoked: k.IsRevoked,
		CreatedAt: k.CreatedAt,
	}
	if k.LastUsedAt != nil {
		p.LastUsedAt = sql.NullTime{Time: *k.LastUsedAt, Valid: true}
	}
	return p
}

func toAKDomain(p akPersistence) admin.ApiKey {
	k := admin.ApiKey{
		ID:        p.ID,
		AdminID:   kernel.NewAdminID(p.AdminID),
		KeyHash:   p.KeyHash,
		Prefix:    p.Prefix,
		Name:      p.Name,
		IsRevoked: p.IsRevoked,
		CreatedAt: p.CreatedAt,
	}
	if p.LastUsedAt.Valid {
		k.LastUsedAt = &p.LastUsedAt.Time
	}
	return k
}
