// Package hardware implements the fingerprint registry (§4.3).
package hardware

import (
	"net/http"
	"time"

	"github.com/giro-sh/license-server/internal/errx"
)

// Hardware is a machine fingerprint with human context. The fingerprint is
// stored verbatim: the desktop already supplies an irreversible hash, so the
// server must not hash it a second time (§4.3).
type Hardware struct {
	ID          string    `db:"id" json:"id"`
	Fingerprint string    `db:"fingerprint" json:"fingerprint"`
	MachineName string    `db:"machine_name" json:"machine_name,omitempty"`
	OSVersion   string    `db:"os_version" json:"os_version,omitempty"`
	CPU         string    `db:"cpu" json:"cpu,omitempty"`
	LastKnownIP string    `db:"last_known_ip" json:"last_known_ip,omitempty"`
	FirstSeen   time.Time `db:"first_seen" json:"first_seen"`
	LastSeen    time.Time `db:"last_seen" json:"last_seen"`
	IsActive    bool      `db:"is_active" json:"is_active"`
}

// WithLicense joins a Hardware row with the license key it is currently
// actively bound to, used by list_for_admin (§4.3).
type WithLicense struct {
	Hardware
	BoundLicenseKey string `json:"bound_license_key,omitempty"`
}

var ErrRegistry = errx.NewRegistry("HARDWARE")

var (
	CodeNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "hardware not found")
)

func ErrNotFound() *errx.Error { return ErrRegistry.New(CodeNotFound) }
