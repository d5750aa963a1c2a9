// Package auditinfra is the Postgres-backed implementation of the
// append-only audit ledger.
package auditinfra

import (
	"context"
	"database/sql"

	"github.com/giro-sh/license-server/internal/audit"
	"github.com/giro-sh/license-server/internal/errx"
	"github.com/giro-sh/license-server/internal/kernel"
	"github.com/jmoiron/sqlx"
)

// PostgresRepository is the audit.Repository implementation backed by the
// append-only audit_logs table: the table grants INSERT and SELECT only, no
// UPDATE or DELETE (enforced at the database role level, not here).
type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) audit.Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ex(ctx context.Context) sqlx.ExtContext {
	return kernel.Executor(ctx, r.db)
}

// Insert participates in the caller's transaction when one is active, so a
// license mutation and its audit row commit or roll back together (§4.4, §5).
func (r *PostgresRepository) Insert(ctx context.Context, log audit.Log) error {
	query := `
		INSERT INTO audit_logs (id, admin_id, license_id, action, ip, user_agent, details, created_at)
		VALUES (:id, :admin_id, :license_id, :action, :ip, :user_agent, :details, :created_at)`

	_, err := sqlx.NamedExecContext(ctx, r.ex(ctx), query, toPersistence(log))
	if err != nil {
		return errx.Wrap(err, "failed to insert audit log", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresRepository) ListForAdmin(ctx context.Context, adminID kernel.AdminID, limit, offset int) ([]audit.Log, error) {
	var rows []logPersistence
	query := `SELECT * FROM audit_logs WHERE admin_id = $1 ORDER BY sequence DESC LIMIT $2 OFFSET $3`
	if err := sqlx.SelectContext(ctx, r.ex(ctx), &rows, query, adminID.String(), limit, offset); err != nil {
		return nil, errx.Wrap(err, "failed to list audit logs for admin", errx.TypeInternal)
	}
	return toDomainSlice(rows), nil
}

func (r *PostgresRepository) ListForLicense(ctx context.Context, licenseID kernel.LicenseID, limit int) ([]audit.Log, error) {
	var rows []logPersistence
	query := `SELECT * FROM audit_logs WHERE license_id = $1 ORDER BY sequence ASC LIMIT $2`
	if err := sqlx.SelectContext(ctx, r.ex(ctx), &rows, query, licenseID.String(), limit); err != nil {
		return nil, errx.Wrap(err, "failed to list audit logs for license", errx.TypeInternal)
	}
	return toDomainSlice(rows), nil
}

// logPersistence mirrors the audit_logs table. sequence is a bigserial:
// monotonic across the whole ledger, which is strictly stronger than the
// per-license ordering §5 requires.
type logPersistence struct {
	ID        string         `db:"id"`
	AdminID   sql.NullString `db:"admin_id"`
	LicenseID sql.NullString `db:"license_id"`
	Action    string         `db:"action"`
	IP        sql.NullString `db:"ip"`
	UserAgent sql.NullString `db:"user_agent"`
	Details   []byte         `db:"details"`
	CreatedAt sql.NullTime   `db:"created_at"`
	Sequence  int64          `db:"sequence"`
}

func toPersistence(l audit.Log) logPersistence {
	p := logPersistence{
		ID:        l.ID,
		Action:    string(l.Action),
		IP:        sql.NullString{String: l.IP, Valid: l.IP != ""},
		UserAgent: sql.NullString{String: l.UserAgent, Valid: l.UserAgent != ""},
		Details:   l.DetailsRaw,
		CreatedAt: sql.NullTime{Time: l.CreatedAt, Valid: !l.CreatedAt.IsZero()},
	}
	if l.AdminID != nil {
		p.AdminID = sql.NullString{String: l.AdminID.String(), Valid: true}
	}
	if l.LicenseID != nil {
		p.LicenseID = sql.NullString{String: l.LicenseID.String(), Valid: true}
	}
	return p
}

func toDomain(p logPersistence) audit.Log {
	l := audit.Log{
		ID:         p.ID,
		Action:     audit.Action(p.Action),
		IP:         p.IP.String,
		UserAgent:  p.UserAgent.String,
		DetailsRaw: p.Details,
		CreatedAt:  p.CreatedAt.Time,
		Sequence:   p.Sequence,
	}
	if p.AdminID.Valid {
		id := kernel.NewAdminID(p.AdminID.String)
		l.AdminID = &id
	}
	if p.LicenseID.Valid {
		id := kernel.NewLicenseID(p.LicenseID.String)
		l.LicenseID = &id
	}
	return l
}

func toDomainSlice(rows []logPersistence) []audit.Log {
	out := make([]audit.Log, len(rows))
	for i, p := range rows {
		out[i] = toDomain(p)
	}
	return out
}
