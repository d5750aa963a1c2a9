// Package license implements the License Manager (§4.2), the core
// revenue-bearing subsystem: issuance, activation, validation, transfer,
// suspension and revocation of license keys.
package license

import (
	"net/http"
	"time"

	"github.com/giro-sh/license-server/internal/errx"
	"github.com/giro-sh/license-server/internal/kernel"
)

// Status is the closed set of states a License can occupy (§3). Revocation
// is terminal: no operation ever moves a license out of StatusRevoked.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusRevoked   Status = "revoked"
)

// Plan governs the device ceiling enforced by activate (§3, §4.2).
type Plan string

const (
	PlanBasic        Plan = "basic"
	PlanProfessional Plan = "professional"
	PlanEnterprise   Plan = "enterprise"
)

// MaxDevices returns the device ceiling for p. Enterprise has no ceiling:
// activate never fails on capacity for an enterprise license (§8).
func (p Plan) MaxDevices() (limit int, unlimited bool) {
	switch p {
	case PlanBasic:
		return 1, false
	case PlanProfessional:
		return 3, false
	case PlanEnterprise:
		return 0, true
	default:
		return 1, false
	}
}

// License is the central entity of the system (§3).
type License struct {
	ID          kernel.LicenseID `db:"id" json:"id"`
	Key         string           `db:"key" json:"key"`
	AdminID     kernel.AdminID   `db:"admin_id" json:"admin_id"`
	Plan        Plan             `db:"plan" json:"plan"`
	Status      Status           `db:"status" json:"status"`
	MaxDevices  int              `db:"max_devices" json:"max_devices"`
	IssuedAt    time.Time        `db:"issued_at" json:"issued_at"`
	ExpiresAt   *time.Time       `db:"expires_at" json:"expires_at,omitempty"`
	SuspendedAt *time.Time       `db:"suspended_at" json:"suspended_at,omitempty"`
	RevokedAt   *time.Time       `db:"revoked_at" json:"revoked_at,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// IsExpired reports whether the license has passed its expiry instant.
// A nil ExpiresAt means perpetual.
func (l *License) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// CanActivate reports whether a new device may be bound right now: the
// license must be pending or active, unexpired, and under its device
// ceiling — activate is legal iff current status ∈ {pending, active} (§4.2).
func (l *License) CanActivate(now time.Time, activeDeviceCount int) bool {
	if l.Status != StatusActive && l.Status != StatusPending {
		return false
	}
	if l.IsExpired(now) {
		return false
	}
	_, unlimited := l.Plan.MaxDevices()
	if unlimited {
		return true
	}
	return activeDeviceCount < l.MaxDevices
}

// CanValidate reports whether a validate() call against an already-bound
// device should succeed: active, unexpired (§4.2).
func (l *License) CanValidate(now time.Time) bool {
	return l.Status == StatusActive && !l.IsExpired(now)
}

// LicenseInfo is the read-only admission decision returned by Validate
// (§4.2): never the full License record, so a desktop's heartbeat call
// never sees another admin's internal fields.
type LicenseInfo struct {
	Status        Status     `json:"status"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Plan          Plan       `json:"plan"`
	HardwareMatch bool       `json:"hardware_match"`
	DaysRemaining int        `json:"days_remaining"`
}

// daysRemaining computes the whole days left until expiresAt, floored at
// zero (§4.2). A nil expiresAt (perpetual license) has nothing left to
// count down.
func daysRemaining(expiresAt *time.Time, now time.Time) int {
	if expiresAt == nil {
		return 0
	}
	days := int(expiresAt.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Binding is one historical (or current) hardware attachment of a license,
// joined for admin-facing inspection (§4.2, §4.3).
type Binding struct {
	ID          string           `db:"id" json:"id"`
	LicenseID   kernel.LicenseID `db:"license_id" json:"license_id"`
	HardwareID  kernel.HardwareID `db:"hardware_id" json:"hardware_id"`
	IsActive    bool             `db:"is_active" json:"is_active"`
	BoundAt     time.Time        `db:"bound_at" json:"bound_at"`
	UnboundAt   *time.Time       `db:"unbound_at" json:"unbound_at,omitempty"`
}

var ErrRegistry = errx.NewRegistry("LICENSE")

var (
	CodeNotFound          = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "license not found")
	CodeInvalidPlan       = ErrRegistry.Register("INVALID_PLAN", errx.TypeValidation, http.StatusBadRequest, "unknown plan")
	CodeKeyGenFailed      = ErrRegistry.Register("KEY_GEN_FAILED", errx.TypeInternal, http.StatusInternalServerError, "failed to generate a unique license key")
	CodeNotActive         = ErrRegistry.Register("NOT_ACTIVE", errx.TypeBusiness, http.StatusConflict, "license is not active")
	CodeExpired           = ErrRegistry.Register("EXPIRED", errx.TypeBusiness, http.StatusGone, "license has expired")
	CodeRevoked           = ErrRegistry.Register("REVOKED", errx.TypeBusiness, http.StatusConflict, "license has been revoked")
	CodeAlreadyRevoked    = ErrRegistry.Register("ALREADY_REVOKED", errx.TypeConflict, http.StatusConflict, "license is already revoked")
	CodeCapacityExceeded  = ErrRegistry.Register("CAPACITY_EXCEEDED", errx.TypeBusiness, http.StatusConflict, "device capacity exceeded for this plan")
	CodeHardwareConflict  = ErrRegistry.Register("HARDWARE_CONFLICT", errx.TypeConflict, http.StatusConflict, "fingerprint is bound to a different license")
	CodeHardwareMismatch  = ErrRegistry.Register("HARDWARE_MISMATCH", errx.TypeBusiness, http.StatusForbidden, "fingerprint is not bound to this license")
	CodeInvalidKeyFormat  = ErrRegistry.Register("INVALID_KEY_FORMAT", errx.TypeValidation, http.StatusBadRequest, "malformed license key")
	CodeRestoreRejected   = ErrRegistry.Register("RESTORE_REJECTED", errx.TypeBusiness, http.StatusConflict, "license cannot be restored from its current state")
	CodeReasonRequired    = ErrRegistry.Register("REASON_REQUIRED", errx.TypeValidation, http.StatusBadRequest, "an audit reason is required for this action")
)

func ErrNotFound() *errx.Error         { return ErrRegistry.New(CodeNotFound) }
func ErrInvalidPlan() *errx.Error      { return ErrRegistry.New(CodeInvalidPlan) }
func ErrKeyGenFailed() *errx.Error     { return ErrRegistry.New(CodeKeyGenFailed) }
func ErrNotActive() *errx.Error        { return ErrRegistry.New(CodeNotActive) }
func ErrExpired() *errx.Error          { return ErrRegistry.New(CodeExpired) }
func ErrRevoked() *errx.Error          { return ErrRegistry.New(CodeRevoked) }
func ErrAlreadyRevoked() *errx.Error   { return ErrRegistry.New(CodeAlreadyRevoked) }
func ErrCapacityExceeded() *errx.Error { return ErrRegistry.New(CodeCapacityExceeded) }
func ErrHardwareConflict() *errx.Error { return ErrRegistry.New(CodeHardwareConflict) }
func ErrHardwareMismatch() *errx.Error { return ErrRegistry.New(CodeHardwareMismatch) }
func ErrInvalidKeyFormat() *errx.Error { return ErrRegistry.New(CodeInvalidKeyFormat) }
func ErrRestoreRejected() *errx.Error  { return ErrRegistry.New(CodeRestoreRejected) }
func ErrReasonRequired() *errx.Error   { return ErrRegistry.New(CodeReasonRequired) }
