// Package audit implements the append-only security event ledger (§4.4).
package audit

import (
	"net/http"
	"time"

	"github.com/giro-sh/license-server/internal/errx"
	"github.com/giro-sh/license-server/internal/kernel"
)

// Action is drawn from the closed taxonomy in §4.4. No other value is valid.
type Action string

const (
	ActionLogin                 Action = "login"
	ActionLogout                Action = "logout"
	ActionLoginFailed           Action = "login_failed"
	ActionPasswordReset         Action = "password_reset"
	ActionAdminProfileUpdated   Action = "admin_profile_updated"

	ActionLicenseCreated          Action = "license_created"
	ActionLicenseActivated        Action = "license_activated"
	ActionLicenseValidated        Action = "license_validated"
	ActionLicenseValidationFailed Action = "license_validation_failed"
	ActionLicenseTransferred      Action = "license_transferred"
	ActionLicenseSuspended        Action = "license_suspended"
	ActionLicenseRevoked          Action = "license_revoked"
	ActionLicenseRestored         Action = "license_restored"
	ActionLicenseReassigned       Action = "license_reassigned"

	ActionHardwareRegistered Action = "hardware_registered"
	ActionHardwareConflict   Action = "hardware_conflict"
	ActionHardwareCleared    Action = "hardware_cleared"

	ActionPaymentCreated   Action = "payment_created"
	ActionPaymentCompleted Action = "payment_completed"
	ActionPaymentFailed    Action = "payment_failed"
)

// Log is one immutable row in the ledger. Never updated, never deleted.
type Log struct {
	ID        string           `db:"id" json:"id"`
	AdminID   *kernel.AdminID  `db:"admin_id" json:"admin_id,omitempty"`
	LicenseID *kernel.LicenseID `db:"license_id" json:"license_id,omitempty"`
	Action    Action           `db:"action" json:"action"`
	IP        string           `db:"ip" json:"ip,omitempty"`
	UserAgent string           `db:"user_agent" json:"user_agent,omitempty"`
	Details   map[string]any   `db:"-" json:"details,omitempty"`
	DetailsRaw []byte          `db:"details" json:"-"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	Sequence  int64            `db:"sequence" json:"sequence"`
}

var ErrRegistry = errx.NewRegistry("AUDIT")

var CodeWriteFailed = ErrRegistry.Register("WRITE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "failed to record audit event")

func ErrWriteFailed() *errx.Error { return ErrRegistry.New(CodeWriteFailed) }
