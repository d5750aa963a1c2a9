package license

import (
	"context"
	"time"

	"github.com/giro-sh/license-server/internal/kernel"
)

// CreateInput is the set of admin-supplied fields for issuing a license.
type CreateInput struct {
	AdminID    kernel.AdminID
	Plan       Plan
	ExpiresAt  *time.Time
}

// Stats is the aggregate shape returned by GET /licenses/stats (SPEC_FULL §C).
type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"by_status"`
	ByPlan   map[Plan]int   `json:"by_plan"`
}

// Repository is the persistence contract for licenses and their hardware
// bindings. Binding rows live in the same table the hardware package reads
// from for conflict checks (§4.2, §4.3); both contexts query it by SQL
// rather than importing one another.
type Repository interface {
	Create(ctx context.Context, l License) error
	FindByID(ctx context.Context, id kernel.LicenseID) (*License, error)
	FindByKey(ctx context.Context, key string) (*License, error)
	Update(ctx context.Context, l License) error
	ListForAdmin(ctx context.Context, adminID kernel.AdminID, limit, offset int) ([]License, int, error)
	Stats(ctx context.Context, adminID kernel.AdminID) (Stats, error)
	KeyExists(ctx context.Context, key string) (bool, error)

	// CountActiveBindings returns how many distinct hardware rows are
	// currently bound to licenseID (§4.2's device-ceiling check).
	CountActiveBindings(ctx context.Context, licenseID kernel.LicenseID) (int, error)

	// ActiveBinding returns the active binding row for (licenseID,
	// hardwareID), or nil if none exists.
	ActiveBinding(ctx context.Context, licenseID kernel.LicenseID, hardwareID kernel.HardwareID) (*Binding, error)

	// Bind inserts a new active binding row.
	Bind(ctx context.Context, licenseID kernel.LicenseID, hardwareID kernel.HardwareID) error

	// UnbindAll marks every active binding for licenseID as inactive, used
	// by transfer (§4.2); suspend and revoke leave bindings in place.
	UnbindAll(ctx context.Context, licenseID kernel.LicenseID) error

	// ListBindings returns the full binding history for a license, newest
	// first.
	ListBindings(ctx context.Context, licenseID kernel.LicenseID) ([]Binding, error)
}

// TxRunner runs fn inside one atomic unit of work spanning the license,
// hardware and audit tables (§5).
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
