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

type PostgresRefreshTokenRepository struct {
	db *sqlx.DB
}

func NewPostgresRefreshTokenRepository(db *sqlx.DB) admin.RefreshTokenRepository {
	return &PostgresRefreshTokenRepository{db: db}
}

func (r *PostgresRefreshTokenRepository) ex(ctx context.Context) sqlx.ExtContext {
	return kernel.Executor(ctx, r.db)
}

func (r *PostgresRefreshTokenRepository) Create(ctx context.Context, t admin.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, token_hash, admin_id, expires_at, created_at, revoked_at)
		VALUES (:id, :token_hash, :admin_id, :expires_at, :created_at, :revoked_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.ex(ctx), query, toRTPersistence(t)); err != nil {
		return errx.Wrap(err, "failed to create refresh token", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresRefreshTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*admin.RefreshToken, error) {
	var row rtPersistence
	query := `SELECT * FROM refresh_tokens WHERE token_hash = $1`
	if err := sqlx.GetContext(ctx, r.ex(ctx), &row, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to find refresh token by hash", errx.TypeInternal)
	}
	t := toRTDomain(row)
	return &t, nil
}

func (r *PostgresRefreshTokenRepository) Revoke(ctx context.Context, id string) error {
	query := `UPDATE refresh_tokens SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`
	if _, err := r.ex(ctx).ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return errx.Wrap(err, "failed to revoke refresh token", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresRefreshTokenRepository) RevokeAllForAdmin(ctx context.Context, adminID kernel.AdminID) error {
	query := `UPDATE refresh_tokens SET revoked_at = $2 WHERE admin_id = $1 AND revoked_at IS NULL`
	if _, err := r.ex(ctx).ExecContext(ctx, query, adminID.String(), time.Now().UTC()); err != nil {
		return errx.Wrap(err, "failed to revoke refresh tokens for admin", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresRefreshTokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at < $1 OR revoked_at < $1`
	res, err := r.ex(ctx).ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, errx.Wrap(err, "failed to delete expired refresh tokens", errx.TypeInternal)
	}
	return res.RowsAffected()
}

type rtPersistence struct {
	ID        string       `db:"id"`
	TokenHash string       `db:"token_hash"`
	AdminID   string       `db:"admin_id"`
	ExpiresAt time.Time    `db:"expires_at"`
	CreatedAt time.Time    `db:"created_at"`
	RevokedAt sql.NullTime `db:"revoked_at"`
}

func toRTPersistence(t admin.RefreshToken) rtPersistence {
	p := rtPersistence{
		ID:        t.ID,
		TokenHash: t.TokenHash,
		AdminID:   t.AdminID.String(),
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
	}
	if t.RevokedAt != nil {
		p.RevokedAt = sql.NullTime{Time: *t.RevokedAt, Valid: true}
	}
	return p
}

func toRTDomain(p rtPersistence) admin.RefreshToken {
	t := admin.RefreshToken{
		ID:        p.ID,
		TokenHash: p.TokenHash,
		AdminID:   kernel.NewAdminID(p.AdminID),
		ExpiresAt: p.ExpiresAt,
		CreatedAt: p.CreatedAt,
	}
	if p.RevokedAt.Valid {
		t.RevokedAt = &p.RevokedAt.Time
	}
	return t
}
