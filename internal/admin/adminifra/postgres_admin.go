// Package adminifra is the Postgres- and Redis-backed implementation of
// Identity & Session's persistence and blacklist contracts.
package adminifra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/giro-sh/license-server/internal/admin"
	"github.com/giro-sh/license-server/internal/errx"
	"github.com/giro-sh/license-server/internal/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type PostgresAdminRepository struct {
	db *sqlx.DB
}

func NewPostgresAdminRepository(db *sqlx.DB) admin.Repository {
	return &PostgresAdminRepository{db: db}
}

func (r *PostgresAdminRepository) ex(ctx context.Context) sqlx.ExtContext {
	return kernel.Executor(ctx, r.db)
}

func (r *PostgresAdminRepository) Create(ctx context.Context, a admin.Admin) error {
	query := `
		INSERT INTO admins (id, email, password_hash, name, totp_secret, totp_enabled, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :name, :totp_secret, :totp_enabled, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.ex(ctx), query, toPersistence(a)); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return admin.ErrEmailTaken()
		}
		return errx.Wrap(err, "failed to create admin", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresAdminRepository) FindByID(ctx context.Context, id kernel.AdminID) (*admin.Admin, error) {
	var row adminPersistence
	query := `SELECT * FROM admins WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.ex(ctx), &row, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, admin.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find admin by id", errx.TypeInternal)
	}
	a := toDomain(row)
	return &a, nil
}

func (r *PostgresAdminRepository) FindByEmail(ctx context.Context, email string) (*admin.Admin, error) {
	var row adminPersistence
	query := `SELECT * FROM admins WHERE email = $1`
	if err := sqlx.GetContext(ctx, r.ex(ctx), &row, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, admin.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find admin by email", errx.TypeInternal)
	}
	a := toDomain(row)
	return &a, nil
}

func (r *PostgresAdminRepository) Update(ctx context.Context, a admin.Admin) error {
	query := `
		UPDATE admins SET
			password_hash = :password_hash, name = :name, totp_secret = :totp_secret,
			totp_enabled = :totp_enabled, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.ex(ctx), query, toPersistence(a))
	if err != nil {
		return errx.Wrap(err, "failed to update admin", errx.TypeInternal)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to confirm admin update", errx.TypeInternal)
	}
	if n == 0 {
		return admin.ErrNotFound()
	}
	return nil
}

type adminPersistence struct {
	ID           string `db:"id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	Name         string `db:"name"`
	TOTPSecret   string `db:"totp_secret"`
	TOTPEnabled  bool   `db:"totp_enabled"`
	CreatedAt    sql.NullTime `db:"created_at"`
	UpdatedAt    sql.NullTime `db:"updated_at"`
}

func toPersistence(a admin.Admin) adminPersistence {
	return adminPersistence{
		ID:           a.ID.String(),
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Name:         a.Name,
		TOTPSecret:   a.TOTPSecret,
		TOTPEnabled:  a.TOTPEnabled,
		CreatedAt:    sql.NullTime{Time: a.CreatedAt, Valid: !a.CreatedAt.IsZero()},
		UpdatedAt:    sql.NullTime{Time: a.UpdatedAt, Valid: !a.UpdatedAt.IsZero()},
	}
}

func toDomain(p adminPersistence) admin.Admin {
	return admin.Admin{
		ID:           kernel.NewAdminID(p.ID),
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Name:         p.Name,
		TOTPSecret:   p.TOTPSecret,
		TOTPEnabled:  p.TOTPEnabled,
		CreatedAt:    p.CreatedAt.Time,
		UpdatedAt:    p.UpdatedAt.Time,
	}
}
