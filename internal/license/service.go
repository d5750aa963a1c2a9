package license

import (
	"context"
	"time"

	"github.com/giro-sh/license-server/internal/audit"
	"github.com/giro-sh/license-server/internal/errx"
	"github.com/giro-sh/license-server/internal/hardware"
	"github.com/giro-sh/license-server/internal/kernel"
	"github.com/google/uuid"
)

const maxKeyGenAttempts = 5

// Service is the License Manager (§4.2): the state machine governing
// issuance, activation, validation, transfer, suspension and revocation.
type Service struct {
	repo     Repository
	tx       TxRunner
	hardware *hardware.Service
	auditLog *audit.Service
}

func NewService(repo Repository, tx TxRunner, hw *hardware.Service, auditLog *audit.Service) *Service {
	return &Service{repo: repo, tx: tx, hardware: hw, auditLog: auditLog}
}

// Create issues a new license in StatusPending: it has no bound hardware
// until the first successful Activate (§4.2).
func (s *Service) Create(ctx context.Context, in CreateInput) (*License, error) {
	switch in.Plan {
	case PlanBasic, PlanProfessional, PlanEnterprise:
	default:
		return nil, ErrInvalidPlan()
	}

	key, err := s.generateUniqueKey(ctx)
	if err != nil {
		return nil, err
	}

	maxDevices, _ := in.Plan.MaxDevices()
	now := time.Now().UTC()
	lic := License{
		ID:         kernel.NewLicenseID(uuid.NewString()),
		Key:        key,
		AdminID:    in.AdminID,
		Plan:       in.Plan,
		Status:     StatusPending,
		MaxDevices: maxDevices,
		IssuedAt:   now,
		ExpiresAt:  in.ExpiresAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, lic); err != nil {
		return nil, errx.Wrap(err, "failed to create license", errx.TypeInternal)
	}

	if err := s.auditLog.Record(ctx, audit.Entry{
		Action:    audit.ActionLicenseCreated,
		AdminID:   &in.AdminID,
		LicenseID: &lic.ID,
		Details:   map[string]any{"plan": in.Plan, "key": lic.Key},
	}); err != nil {
		return nil, err
	}

	return &lic, nil
}

func (s *Service) generateUniqueKey(ctx context.Context) (string, error) {
	for i := 0; i < maxKeyGenAttempts; i++ {
		key, err := GenerateKey()
		if err != nil {
			return "", errx.Wrap(err, "failed to generate license key", errx.TypeInternal)
		}
		exists, err := s.repo.KeyExists(ctx, key)
		if err != nil {
			return "", errx.Wrap(err, "failed to check license key uniqueness", errx.TypeInternal)
		}
		if !exists {
			return key, nil
		}
	}
	return "", ErrKeyGenFailed()
}

func (s *Service) Get(ctx context.Context, id kernel.LicenseID) (*License, error) {
	lic, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound()
	}
	return lic, nil
}

func (s *Service) GetByKey(ctx context.Context, key string) (*License, error) {
	lic, err := s.repo.FindByKey(ctx, NormalizeKey(key))
	if err != nil {
		return nil, ErrNotFound()
	}
	return lic, nil
}

func (s *Service) List(ctx context.Context, adminID kernel.AdminID, opts kernel.PaginationOptions) (kernel.Paginated[License], error) {
	page, size := opts.Page, opts.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	items, total, err := s.repo.ListForAdmin(ctx, adminID, size, offset)
	if err != nil {
		return kernel.Paginated[License]{}, errx.Wrap(err, "failed to list licenses", errx.TypeInternal)
	}
	return kernel.NewPaginated(items, page, size, total), nil
}

func (s *Service) Stats(ctx context.Context, adminID kernel.AdminID) (Stats, error) {
	stats, err := s.repo.Stats(ctx, adminID)
	if err != nil {
		return Stats{}, errx.Wrap(err, "failed to compute license stats", errx.TypeInternal)
	}
	return stats, nil
}

// ActivateInput carries everything the desktop client supplies on first
// contact (§4.2, §4.3).
type ActivateInput struct {
	Key         string
	Fingerprint string
	MachineName string
	OSVersion   string
	CPU         string
	IP          string
}

// Activate binds a fingerprint to a license. If the license is still
// pending, this is the transition into StatusActive. Every step — hardware
// upsert, binding insert, status transition, audit record — commits as one
// unit (§5).
func (s *Service) Activate(ctx context.Context, in ActivateInput) (*License, error) {
	key := NormalizeKey(in.Key)
	if !ValidKeyFormat(key) {
		return nil, ErrInvalidKeyFormat()
	}

	var result *License
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lic, err := s.repo.FindByKey(ctx, key)
		if err != nil {
			return ErrNotFound()
		}
		if lic.Status == StatusRevoked {
			return ErrRevoked()
		}
		if lic.Status == StatusSuspended {
			return ErrNotActive()
		}

		now := time.Now().UTC()
		if lic.IsExpired(now) {
			return ErrExpired()
		}

		otherKey, conflict, err := s.hardware.CheckConflict(ctx, in.Fingerprint, lic.ID)
		if err != nil {
			return err
		}
		if conflict {
			return ErrHardwareConflict().WithDetail("bound_to", otherKey)
		}

		hw, err := s.hardware.Upsert(ctx, hardware.UpsertInput{
			Fingerprint: in.Fingerprint,
			MachineName: in.MachineName,
			OSVersion:   in.OSVersion,
			CPU:         in.CPU,
			IP:          in.IP,
		})
		if err != nil {
			return err
		}
		hwID := kernel.NewHardwareID(hw.ID)

		existingBinding, err := s.repo.ActiveBinding(ctx, lic.ID, hwID)
		if err != nil {
			return errx.Wrap(err, "failed to check existing binding", errx.TypeInternal)
		}

		if existingBinding == nil {
			activeCount, err := s.repo.CountActiveBindings(ctx, lic.ID)
			if err != nil {
				return errx.Wrap(err, "failed to count active bindings", errx.TypeInternal)
			}
			// Status, revocation and expiry were already checked above, so a
			// failure here can only be the device ceiling (§4.2).
			if !lic.CanActivate(now, activeCount) {
				return ErrCapacityExceeded()
			}
			if err := s.repo.Bind(ctx, lic.ID, hwID); err != nil {
				return errx.Wrap(err, "failed to bind hardware", errx.TypeInternal)
			}
		}

		if lic.Status == StatusPending {
			lic.Status = StatusActive
		}
		lic.UpdatedAt = now
		if err := s.repo.Update(ctx, *lic); err != nil {
			return errx.Wrap(err, "failed to update license", errx.TypeInternal)
		}

		if err := s.auditLog.Record(ctx, audit.Entry{
			Action:    audit.ActionLicenseActivated,
			AdminID:   &lic.AdminID,
			LicenseID: &lic.ID,
			IP:        in.IP,
			Details:   map[string]any{"fingerprint": in.Fingerprint},
		}); err != nil {
			return err
		}

		result = lic
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Validate is the steady-state heartbeat call (§4.2): besides the audit
// trail, the only state it touches is the hardware row's last-seen stamp and
// last known IP.
func (s *Service) Validate(ctx context.Context, key, fingerprint, ip string) (*LicenseInfo, error) {
	key = NormalizeKey(key)
	if !ValidKeyFormat(key) {
		return nil, ErrInvalidKeyFormat()
	}

	lic, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		return nil, ErrNotFound()
	}

	now := time.Now().UTC()
	fail := func(reason string, cause error) (*LicenseInfo, error) {
		_ = s.auditLog.Record(ctx, audit.Entry{
			Action:    audit.ActionLicenseValidationFailed,
			AdminID:   &lic.AdminID,
			LicenseID: &lic.ID,
			IP:        ip,
			Details:   map[string]any{"reason": reason, "fingerprint": fingerprint},
		})
		return nil, cause
	}

	if lic.Status == StatusRevoked {
		return fail("revoked", ErrRevoked())
	}
	if !lic.CanValidate(now) {
		if lic.IsExpired(now) {
			return fail("expired", ErrExpired())
		}
		return fail("not_active", ErrNotActive())
	}

	boundLicenseID, _, err := s.hardware.ActiveLicenseForFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, errx.Wrap(err, "failed to check hardware binding", errx.TypeInternal)
	}
	hardwareMatch := boundLicenseID != nil && *boundLicenseID == lic.ID
	if !hardwareMatch {
		return fail("hardware_mismatch", ErrHardwareMismatch())
	}

	if _, err := s.hardware.Upsert(ctx, hardware.UpsertInput{Fingerprint: fingerprint, IP: ip}); err != nil {
		return nil, err
	}

	if err := s.auditLog.Record(ctx, audit.Entry{
		Action:    audit.ActionLicenseValidated,
		AdminID:   &lic.AdminID,
		LicenseID: &lic.ID,
		IP:        ip,
		Details:   map[string]any{"fingerprint": fingerprint},
	}); err != nil {
		return nil, err
	}

	return &LicenseInfo{
		Status:        lic.Status,
		ExpiresAt:     lic.ExpiresAt,
		Plan:          lic.Plan,
		HardwareMatch: hardwareMatch,
		DaysRemaining: daysRemaining(lic.ExpiresAt, now),
	}, nil
}

// Transfer moves the active binding from one fingerprint to another,
// admin-initiated. Per design decision this is permitted even while the
// license is suspended — suspension blocks activate/validate, not
// reassignment of hardware by the owning admin (§4.2 Open Question).
func (s *Service) Transfer(ctx context.Context, id kernel.LicenseID, newFingerprint, reason, ip string) (*License, error) {
	if reason == "" {
		return nil, ErrReasonRequired()
	}

	var result *License
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lic, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return ErrNotFound()
		}
		if lic.Status == StatusRevoked {
			return ErrRevoked()
		}

		otherKey, conflict, err := s.hardware.CheckConflict(ctx, newFingerprint, lic.ID)
		if err != nil {
			return err
		}
		if conflict {
			return ErrHardwareConflict().WithDetail("bound_to", otherKey)
		}

		hw, err := s.hardware.Upsert(ctx, hardware.UpsertInput{Fingerprint: newFingerprint, IP: ip})
		if err != nil {
			return err
		}

		if err := s.repo.UnbindAll(ctx, lic.ID); err != nil {
			return errx.Wrap(err, "failed to unbind previous hardware", errx.TypeInternal)
		}
		if err := s.repo.Bind(ctx, lic.ID, kernel.NewHardwareID(hw.ID)); err != nil {
			return errx.Wrap(err, "failed to bind new hardware", errx.TypeInternal)
		}

		lic.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, *lic); err != nil {
			return errx.Wrap(err, "failed to update license", errx.TypeInternal)
		}

		if err := s.auditLog.Record(ctx, audit.Entry{
			Action:    audit.ActionLicenseTransferred,
			AdminID:   &lic.AdminID,
			LicenseID: &lic.ID,
			IP:        ip,
			Details:   map[string]any{"reason": reason, "new_fingerprint": newFingerprint},
		}); err != nil {
			return err
		}

		result = lic
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Suspend pauses a license: activate and validate both fail while
// suspended, but the state is reversible via RestoreByAdmin (§4.2).
func (s *Service) Suspend(ctx context.Context, id kernel.LicenseID, reason, ip string) (*License, error) {
	if reason == "" {
		return nil, ErrReasonRequired()
	}
	return s.transition(ctx, id, reason, ip, audit.ActionLicenseSuspended, func(lic *License, now time.Time) error {
		if lic.Status == StatusRevoked {
			return ErrRevoked()
		}
		lic.Status = StatusSuspended
		lic.SuspendedAt = &now
		return nil
	})
}

// Revoke is terminal: once revoked, a license can never activate, validate
// or be restored (§4.2, §8).
func (s *Service) Revoke(ctx context.Context, id kernel.LicenseID, reason, ip string) (*License, error) {
	if reason == "" {
		return nil, ErrReasonRequired()
	}
	return s.transition(ctx, id, reason, ip, audit.ActionLicenseRevoked, func(lic *License, now time.Time) error {
		if lic.Status == StatusRevoked {
			return ErrAlreadyRevoked()
		}
		lic.Status = StatusRevoked
		lic.RevokedAt = &now
		return nil
	})
}

// RestoreByAdmin clears a suspension and returns the license to active.
// Decision (Open Question): restoration only ever reverses a suspension; a
// revoked license can never be restored (§4.2).
func (s *Service) RestoreByAdmin(ctx context.Context, id kernel.LicenseID, reason, ip string) (*License, error) {
	if reason == "" {
		return nil, ErrReasonRequired()
	}
	return s.transition(ctx, id, reason, ip, audit.ActionLicenseRestored, func(lic *License, now time.Time) error {
		if lic.Status != StatusSuspended {
			return ErrRestoreRejected()
		}
		lic.Status = StatusActive
		lic.SuspendedAt = nil
		return nil
	})
}

// ReassignAdmin moves ownership of a license to a different admin account,
// e.g. after a support escalation. The hardware bindings and usage history
// are untouched; only the owning admin changes (§4.2).
func (s *Service) ReassignAdmin(ctx context.Context, id kernel.LicenseID, newAdminID kernel.AdminID, reason, ip string) (*License, error) {
	if reason == "" {
		return nil, ErrReasonRequired()
	}

	var result *License
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lic, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return ErrNotFound()
		}
		if lic.Status == StatusRevoked {
			return ErrRevoked()
		}

		previousAdminID := lic.AdminID
		lic.AdminID = newAdminID
		lic.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, *lic); err != nil {
			return errx.Wrap(err, "failed to update license", errx.TypeInternal)
		}

		if err := s.auditLog.Record(ctx, audit.Entry{
			Action:    audit.ActionLicenseReassigned,
			AdminID:   &newAdminID,
			LicenseID: &lic.ID,
			IP:        ip,
			Details:   map[string]any{"reason": reason, "previous_admin_id": previousAdminID},
		}); err != nil {
			return err
		}

		result = lic
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) transition(ctx context.Context, id kernel.LicenseID, reason, ip string, action audit.Action, mutate func(*License, time.Time) error) (*License, error) {
	var result *License
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lic, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return ErrNotFound()
		}

		now := time.Now().UTC()
		if err := mutate(lic, now); err != nil {
			return err
		}
		lic.UpdatedAt = now

		if err := s.repo.Update(ctx, *lic); err != nil {
			return errx.Wrap(err, "failed to update license", errx.TypeInternal)
		}

		if err := s.auditLog.Record(ctx, audit.Entry{
			Action:    action,
			AdminID:   &lic.AdminID,
			LicenseID: &lic.ID,
			IP:        ip,
			Details:   map[string]any{"reason": reason},
		}); err != nil {
			return err
		}

		result = lic
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) ListBindings(ctx context.Context, id kernel.LicenseID) ([]Binding, error) {
	bindings, err := s.repo.ListBindings(ctx, id)
	if err != nil {
		return nil, errx.Wrap(err, "failed to list bindings", errx.TypeInternal)
	}
	return bindings, nil
}
