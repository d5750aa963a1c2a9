// Package hardwareinfra is the Postgres-backed implementation of the
// hardware registry.
package hardwareinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/giro-sh/license-server/internal/errx"
	"github.com/giro-sh/license-server/internal/hardware"
	"github.com/giro-sh/license-server/internal/kernel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func (r *PostgresRepository) ex(ctx context.Context) sqlx.ExtContext {
	return kernel.Executor(ctx, r.db)
}

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) hardware.Repository {
	return &PostgresRepository{db: db}
}

// Upsert creates the row on first contact, or refreshes the descriptive
// fields and last_seen on every subsequent one (§4.3).
func (r *PostgresRepository) Upsert(ctx context.Context, in hardware.UpsertInput) (*hardware.Hardware, error) {
	existing, err := r.FindByFingerprint(ctx, in.Fingerprint)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := time.Now().UTC()

	if existing == nil {
		row := hardwarePersistence{
			ID:          uuid.NewString(),
			Fingerprint: in.Fingerprint,
			MachineName: sql.NullString{String: in.MachineName, Valid: in.MachineName != ""},
			OSVersion:   sql.NullString{String: in.OSVersion, Valid: in.OSVersion != ""},
			CPU:         sql.NullString{String: in.CPU, Valid: in.CPU != ""},
			LastKnownIP: sql.NullString{String: in.IP, Valid: in.IP != ""},
			FirstSeen:   now,
			LastSeen:    now,
			IsActive:    true,
		}
		query := `
			INSERT INTO hardware (id, fingerprint, machine_name, os_version, cpu, last_known_ip, first_seen, last_seen, is_active)
			VALUES (:id, :fingerprint, :machine_name, :os_version, :cpu, :last_known_ip, :first_seen, :last_seen, :is_active)`
		if _, err := sqlx.NamedExecContext(ctx, r.ex(ctx), query, row); err != nil {
			return nil, errx.Wrap(err, "failed to insert hardware", errx.TypeInternal)
		}
		hw := toDomain(row)
		return &hw, nil
	}

	row := hardwarePersistence{
		ID:          existing.ID,
		Fingerprint: existing.Fingerprint,
		MachineName: nullIfEmpty(in.MachineName, existing.MachineName),
		OSVersion:   nullIfEmpty(in.OSVersion, existing.OSVersion),
		CPU:         nullIfEmpty(in.CPU, existing.CPU),
		LastKnownIP: sql.NullString{String: in.IP, Valid: in.IP != ""},
		FirstSeen:   existing.FirstSeen,
		LastSeen:    now,
		IsActive:    true,
	}
	query := `
		UPDATE hardware
		SET machine_name = :machine_name, os_version = :os_version, cpu = :cpu,
		    last_known_ip = :last_known_ip, last_seen = :last_seen, is_active = :is_active
		WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.ex(ctx), query, row); err != nil {
		return nil, errx.Wrap(err, "failed to update hardware", errx.TypeInternal)
	}
	hw := toDomain(row)
	return &hw, nil
}

func nullIfEmpty(newVal, fallback string) sql.NullString {
	if newVal == "" {
		return sql.NullString{String: fallback, Valid: fallback != ""}
	}
	return sql.NullString{String: newVal, Valid: true}
}

func (r *PostgresRepository) FindByFingerprint(ctx context.Context, fingerprint string) (*hardware.Hardware, error) {
	var row hardwarePersistence
	query := `SELECT * FROM hardware WHERE fingerprint = $1`
	if err := sqlx.GetContext(ctx, r.ex(ctx), &row, query, fingerprint); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to find hardware by fingerprint", errx.TypeInternal)
	}
	hw := toDomain(row)
	return &hw, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*hardware.Hardware, error) {
	var row hardwarePersistence
	query := `SELECT * FROM hardware WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.ex(ctx), &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hardware.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find hardware by id", errx.TypeInternal)
	}
	hw := toDomain(row)
	return &hw, nil
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE hardware SET is_active = false WHERE id = $1`
	res, err := r.ex(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return errx.Wrap(err, "failed to deactivate hardware", errx.TypeInternal)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to confirm hardware deactivation", errx.TypeInternal)
	}
	if n == 0 {
		return hardware.ErrNotFound()
	}
	return nil
}

// ActiveLicenseForFingerprint queries the license/hardware binding table
// directly via SQL rather than importing the license package, to keep
// the two bounded contexts from depending on each other (§4.2, §4.3).
func (r *PostgresRepository) ActiveLicenseForFingerprint(ctx context.Context, fingerprint string) (*kernel.LicenseID, *string, error) {
	var row struct {
		LicenseID string `db:"license_id"`
		Key       string `db:"key"`
	}
	query := `
		SELECT l.id AS license_id, l.key AS key
		FROM license_hardware_bindings b
		JOIN hardware h ON h.id = b.hardware_id
		JOIN licenses l ON l.id = b.license_id
		WHERE h.fingerprint = $1 AND b.is_active = true
		LIMIT 1`
	if err := sqlx.GetContext(ctx, r.ex(ctx), &row, query, fingerprint); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, errx.Wrap(err, "failed to query active binding for fingerprint", errx.TypeInternal)
	}
	id := kernel.NewLicenseID(row.LicenseID)
	return &id, &row.Key, nil
}

func (r *PostgresRepository) ListForAdmin(ctx context.Context, adminID kernel.AdminID) ([]hardware.WithLicense, error) {
	var rows []struct {
		hardwarePersistence
		BoundLicenseKey sql.NullString `db:"bound_license_key"`
	}
	query := `
		SELECT h.*, l.key AS bound_license_key
		FROM hardware h
		JOIN license_hardware_bindings b ON b.hardware_id = h.id AND b.is_active = true
		JOIN licenses l ON l.id = b.license_id
		WHERE l.admin_id = $1
		ORDER BY h.last_seen DESC`
	if err := sqlx.SelectContext(ctx, r.ex(ctx), &rows, query, adminID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to list hardware for admin", errx.TypeInternal)
	}

	out := make([]hardware.WithLicense, len(rows))
	for i, row := range rows {
		out[i] = hardware.WithLicense{
			Hardware:        toDomain(row.hardwarePersistence),
			BoundLicenseKey: row.BoundLicenseKey.String,
		}
	}
	return out, nil
}

type hardwarePersistence struct {
	ID          string         `db:"id"`
	Fingerprint string         `db:"fingerprint"`
	MachineName sql.NullString `db:"machine_name"`
	OSVersion   sql.NullString `db:"os_version"`
	CPU         sql.NullString `db:"cpu"`
	LastKnownIP sql.NullString `db:"last_known_ip"`
	FirstSeen   time.Time      `db:"first_seen"`
	LastSeen    time.Time      `db:"last_seen"`
	IsActive    bool           `db:"is_active"`
}

func toDomain(p hardwarePersistence) hardware.Hardware {
	return hardware.Hardware{
		ID:          p.ID,
		Fingerprint: p.Fingerprint,
		MachineName: p.MachineName.String,
		OSVersion:   p.OSVersion.String,
		CPU:         p.CPU.String,
		LastKnownIP: p.LastKnownIP.String,
		FirstSeen:   p.FirstSeen,
		LastSeen:    p.LastSeen,
		IsActive:    p.IsActive,
	}
}
