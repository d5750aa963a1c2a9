package hardware

import (
	"context"

	"github.com/giro-sh/license-server/internal/kernel"
)

// UpsertInput carries the client-supplied context for a fingerprint contact.
type UpsertInput struct {
	Fingerprint string
	MachineName string
	OSVersion   string
	CPU         string
	IP          string
}

// Repository is the persistence contract for the hardware registry.
type Repository interface {
	Upsert(ctx context.Context, in UpsertInput) (*Hardware, error)
	FindByFingerprint(ctx context.Context, fingerprint string) (*Hardware, error)
	FindByID(ctx context.Context, id string) (*Hardware, error)
	Deactivate(ctx context.Context, id string) error

	// ActiveLicenseForFingerprint returns the license currently bound to the
	// given fingerprint, if any, used for conflict detection (§4.2, §4.3).
	ActiveLicenseForFingerprint(ctx context.Context, fingerprint string) (*kernel.LicenseID, *string, error)

	ListForAdmin(ctx context.Context, adminID kernel.AdminID) ([]WithLicense, error)
}
