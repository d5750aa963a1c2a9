package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/giro-sh/license-server/internal/errx"
	"github.com/giro-sh/license-server/internal/kernel"
	"github.com/giro-sh/license-server/internal/logx"
	"github.com/google/uuid"
)

// Entry is the caller-facing shape for appending a new audit row; the
// service stamps ID, CreatedAt and serializes Details.
type Entry struct {
	Action    Action
	AdminID   *kernel.AdminID
	LicenseID *kernel.LicenseID
	IP        string
	UserAgent string
	Details   map[string]any
}

// Service is the Audit Ledger (§4.4). It is the only writer of the
// append-only store; reads are exposed for the admin-facing investigation
// endpoints.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends exactly one row. A failure here MUST propagate to the
// caller so the enclosing transaction rolls back (§4.4, §5): a
// security-sensitive mutation with no audit row is treated as having not
// happened.
func (s *Service) Record(ctx context.Context, e Entry) error {
	raw, err := json.Marshal(e.Details)
	if err != nil {
		return errx.Wrap(err, "failed to marshal audit details", errx.TypeInternal)
	}

	log := Log{
		ID:         uuid.NewString(),
		AdminID:    e.AdminID,
		LicenseID:  e.LicenseID,
		Action:     e.Action,
		IP:         e.IP,
		UserAgent:  e.UserAgent,
		DetailsRaw: raw,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, log); err != nil {
		return ErrWriteFailed().WithDetail("error", err.Error())
	}

	logx.WithFields(logx.Fields{
		"audit_action": e.Action,
		"admin_id":     e.AdminID,
		"license_id":   e.LicenseID,
		"ip":           e.IP,
	}).Info("audit: recorded")

	return nil
}

// ListForAdmin returns the most recent rows touching an admin, newest first.
func (s *Service) ListForAdmin(ctx context.Context, adminID kernel.AdminID, limit, offset int) ([]Log, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListForAdmin(ctx, adminID, limit, offset)
}

// ListForLicense returns the audit trail for one license, in the
// non-decreasing timestamp order guaranteed by §8's audit-monotonicity law.
func (s *Service) ListForLicense(ctx context.Context, licenseID kernel.LicenseID, limit int) ([]Log, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListForLicense(ctx, licenseID, limit)
}
