// Package licenseinfra is the Postgres-backed implementation of the
// License Manager's persistence contract.
package licenseinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/giro-sh/license-server/internal/errx"
	"github.com/giro-sh/license-server/internal/kernel"
	"github.com/giro-sh/license-server/internal/license"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) license.Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ex(ctx context.Context) sqlx.ExtContext {
	return kernel.Executor(ctx, r.db)
}

func (r *PostgresRepository) Create(ctx context.Context, l license.License) error {
	query := `
		INSERT INTO licenses (id, key, admin_id, plan, status, max_devices, issued_at, expires_at, suspended_at, revoked_at, created_at, updated_at)
		VALUES (:id, :key, :admin_id, :plan, :status, :max_devices, :issued_at, :expires_at, :suspended_at, :revoked_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.ex(ctx), query, toPersistence(l)); err != nil {
		return errx.Wrap(err, "failed to create license", errx.TypeInternal)
	}
	return nil
}

// FindByID locks the row FOR UPDATE when called inside a transaction, so
// concurrent activate/suspend/revoke calls against the same license
// serialize instead of racing (§5).
func (r *PostgresRepository) FindByID(ctx context.Context, id kernel.LicenseID) (*license.License, error) {
	var row licensePersistence
	query := `SELECT * FROM licenses WHERE id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, r.ex(ctx), &row, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, license.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find license by id", errx.TypeInternal)
	}
	lic := toDomain(row)
	return &lic, nil
}

func (r *PostgresRepository) FindByKey(ctx context.Context, key string) (*license.License, error) {
	var row licensePersistence
	query := `SELECT * FROM licenses WHERE key = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, r.ex(ctx), &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, license.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find license by key", errx.TypeInternal)
	}
	lic := toDomain(row)
	return &lic, nil
}

func (r *PostgresRepository) Update(ctx context.Context, l license.License) error {
	query := `
		UPDATE licenses SET
			admin_id = :admin_id,
			status = :status, max_devices = :max_devices, expires_at = :expires_at,
			suspended_at = :suspended_at, revoked_at = :revoked_at, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.ex(ctx), query, toPersistence(l))
	if err != nil {
		return errx.Wrap(err, "failed to update license", errx.TypeInternal)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to confirm license update", errx.TypeInternal)
	}
	if n == 0 {
		return license.ErrNotFound()
	}
	return nil
}

func (r *PostgresRepository) ListForAdmin(ctx context.Context, adminID kernel.AdminID, limit, offset int) ([]license.License, int, error) {
	var rows []licensePersistence
	query := `SELECT * FROM licenses WHERE admin_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := sqlx.SelectContext(ctx, r.ex(ctx), &rows, query, adminID.String(), limit, offset); err != nil {
		return nil, 0, errx.Wrap(err, "failed to list licenses for admin", errx.TypeInternal)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM licenses WHERE admin_id = $1`
	if err := sqlx.GetContext(ctx, r.ex(ctx), &total, countQuery, adminID.String()); err != nil {
		return nil, 0, errx.Wrap(err, "failed to count licenses for admin", errx.TypeInternal)
	}

	return toDomainSlice(rows), total, nil
}

func (r *PostgresRepository) Stats(ctx context.Context, adminID kernel.AdminID) (license.Stats, error) {
	stats := license.Stats{ByStatus: map[license.Status]int{}, ByPlan: map[license.Plan]int{}}

	var statusRows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	query := `SELECT status, COUNT(*) AS count FROM licenses WHERE admin_id = $1 GROUP BY status`
	if err := sqlx.SelectContext(ctx, r.ex(ctx), &statusRows, query, adminID.String()); err != nil {
		return license.Stats{}, errx.Wrap(err, "failed to aggregate license status counts", errx.TypeInternal)
	}
	for _, row := range statusRows {
		stats.ByStatus[license.Status(row.Status)] = row.Count
		stats.Total += row.Count
	}

	var planRows []struct {
		Plan  string `db:"plan"`
		Count int    `db:"count"`
	}
	planQuery := `SELECT plan, COUNT(*) AS count FROM licenses WHERE admin_id = $1 GROUP BY plan`
	if err := sqlx.SelectContext(ctx, r.ex(ctx), &planRows, planQuery, adminID.String()); err != nil {
		return license.Stats{}, errx.Wrap(err, "failed to aggregate license plan counts", errx.TypeInternal)
	}
	for _, row := range planRows {
		stats.ByPlan[license.Plan(row.Plan)] = row.Count
	}

	return stats, nil
}

func (r *PostgresRepository) KeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM licenses WHERE key = $1)`
	if err := sqlx.GetContext(ctx, r.ex(ctx), &exists, query, key); err != nil {
		return false, errx.Wrap(err, "failed to check license key existence", errx.TypeInternal)
	}
	return exists, nil
}

func (r *PostgresRepository) CountActiveBindings(ctx context.Context, licenseID kernel.LicenseID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM license_hardware_bindings WHERE license_id = $1 AND is_active = true`
	if err := sqlx.GetContext(ctx, r.ex(ctx), &count, query, licenseID.String()); err != nil {
		return 0, errx.Wrap(err, "failed to count active bindings", errx.TypeInternal)
	}
	return count, nil
}

func (r *PostgresRepository) ActiveBinding(ctx context.Context, licenseID kernel.LicenseID, hardwareID kernel.HardwareID) (*license.Binding, error) {
	var row bindingPersistence
	query := `SELECT * FROM license_hardware_bindings WHERE license_id = $1 AND hardware_id = $2 AND is_active = true`
	if err := sqlx.GetContext(ctx, r.ex(ctx), &row, query, licenseID.String(), hardwareID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to find active binding", errx.TypeInternal)
	}
	b := toBindingDomain(row)
	return &b, nil
}

func (r *PostgresRepository) Bind(ctx context.Context, licenseID kernel.LicenseID, hardwareID kernel.HardwareID) error {
	row := bindingPersistence{
		ID:         uuid.NewString(),
		LicenseID:  licenseID.String(),
		HardwareID: hardwareID.String(),
		IsActive:   true,
		BoundAt:    time.Now().UTC(),
	}
	query := `
		INSERT INTO license_hardware_bindings (id, license_id, hardware_id, is_active, bound_at, unbound_at)
		VALUES (:id, :license_id, :hardware_id, :is_active, :bound_at, :unbound_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.ex(ctx), query, row); err != nil {
		return errx.Wrap(err, "failed to bind hardware", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresRepository) UnbindAll(ctx context.Context, licenseID kernel.LicenseID) error {
	query := `UPDATE license_hardware_bindings SET is_active = false, unbound_at = $2 WHERE license_id = $1 AND is_active = true`
	if _, err := r.ex(ctx).ExecContext(ctx, query, licenseID.String(), time.Now().UTC()); err != nil {
		return errx.Wrap(err, "failed to unbind hardware", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresRepository) ListBindings(ctx context.Context, licenseID kernel.LicenseID) ([]license.Binding, error) {
	var rows []bindingPersistence
	query := `SELECT * FROM license_hardware_bindings WHERE license_id = $1 ORDER BY bound_at DESC`
	if err := sqlx.SelectContext(ctx, r.ex(ctx), &rows, query, licenseID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to list bindings", errx.TypeInternal)
	}
	out := make([]license.Binding, len(rows))
	for i, row := range rows {
		out[i] = toBindingDomain(row)
	}
	return out, nil
}

type licensePersistence struct {
	ID          string         `db:"id"`
	Key         string         `db:"key"`
	AdminID     string         `db:"admin_id"`
	Plan        string         `db:"plan"`
	Status      string         `db:"status"`
	MaxDevices  int            `db:"max_devices"`
	IssuedAt    time.Time      `db:"issued_at"`
	ExpiresAt   sql.NullTime   `db:"expires_at"`
	SuspendedAt sql.NullTime   `db:"suspended_at"`
	RevokedAt   sql.NullTime   `db:"revoked_at"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func toPersistence(l license.License) licensePersistence {
	return licensePersistence{
		ID:          l.ID.String(),
		Key:         l.Key,
		AdminID:     l.AdminID.String(),
		Plan:        string(l.Plan),
		Status:      string(l.Status),
		MaxDevices:  l.MaxDevices,
		IssuedAt:    l.IssuedAt,
		ExpiresAt:   nullableTime(l.ExpiresAt),
		SuspendedAt: nullableTime(l.SuspendedAt),
		RevokedAt:   nullableTime(l.RevokedAt),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func toDomain(p licensePersistence) license.License {
	l := license.License{
		ID:         kernel.NewLicenseID(p.ID),
		Key:        p.Key,
		AdminID:    kernel.NewAdminID(p.AdminID),
		Plan:       license.Plan(p.Plan),
		Status:     license.Status(p.Status),
		MaxDevices: p.MaxDevices,
		IssuedAt:   p.IssuedAt,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	if p.ExpiresAt.Valid {
		l.ExpiresAt = &p.ExpiresAt.Time
	}
	if p.SuspendedAt.Valid {
		l.SuspendedAt = &p.SuspendedAt.Time
	}
	if p.RevokedAt.Valid {
		l.RevokedAt = &p.RevokedAt.Time
	}
	return l
}

func toDomainSlice(rows []licensePersistence) []license.License {
	out := make([]license.License, len(rows))
	for i, row := range rows {
		out[i] = toDomain(row)
	}
	return out
}

type bindingPersistence struct {
	ID         string       `db:"id"`
	LicenseID  string       `db:"license_id"`
	HardwareID string       `db:"hardware_id"`
	IsActive   bool         `db:"is_active"`
	BoundAt    time.Time    `db:"bound_at"`
	UnboundAt  sql.NullTime `db:"unbound_at"`
}

func toBindingDomain(p bindingPersistence) license.Binding {
	b := license.Binding{
		ID:         p.ID,
		LicenseID:  kernel.NewLicenseID(p.LicenseID),
		HardwareID: kernel.NewHardwareID(p.HardwareID),
		IsActive:   p.IsActive,
		BoundAt:    p.BoundAt,
	}
	if p.UnboundAt.Valid {
		b.UnboundAt = &p.UnboundAt.Time
	}
	return b
}
