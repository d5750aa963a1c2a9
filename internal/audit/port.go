package audit

import (
	"context"

	"github.com/giro-sh/license-server/internal/kernel"
)

// Repository is the append-only persistence contract for the ledger. There
// is intentionally no Update or Delete method: the storage layer grants no
// such privilege (§4.4 invariants).
type Repository interface {
	Insert(ctx context.Context, log Log) error
	ListForAdmin(ctx context.Context, adminID kernel.AdminID, limit, offset int) ([]Log, error)
	ListForLicense(ctx context.Context, licenseID kernel.LicenseID, limit int) ([]Log, error)
}

// Writer is the narrow interface the other bounded contexts depend on, so a
// license or hardware mutation can append a row without importing the full
// service surface.
type Writer interface {
	Record(ctx context.Context, entry Entry) error
}
