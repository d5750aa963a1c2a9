package hardware

import (
	"context"

	"github.com/giro-sh/license-server/internal/errx"
	"github.com/giro-sh/license-server/internal/kernel"
)

// Service is the Hardware Registry (§4.3).
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Upsert creates-or-refreshes a fingerprint row and stamps last_seen.
func (s *Service) Upsert(ctx context.Context, in UpsertInput) (*Hardware, error) {
	hw, err := s.repo.Upsert(ctx, in)
	if err != nil {
		return nil, errx.Wrap(err, "failed to upsert hardware", errx.TypeInternal)
	}
	return hw, nil
}

// CheckConflict returns the key of any OTHER active license currently bound
// to fingerprint, or ("", false) if there is none. A binding to licenseID
// itself is never a conflict.
func (s *Service) CheckConflict(ctx context.Context, fingerprint string, licenseID kernel.LicenseID) (string, bool, error) {
	boundLicenseID, boundKey, err := s.repo.ActiveLicenseForFingerprint(ctx, fingerprint)
	if err != nil {
		return "", false, errx.Wrap(err, "failed to check hardware conflict", errx.TypeInternal)
	}
	if boundLicenseID == nil {
		return "", false, nil
	}
	if *boundLicenseID == licenseID {
		return "", false, nil
	}
	return *boundKey, true, nil
}

// ListForAdmin returns every fingerprint with an active binding to one of
// the admin's licenses, joined with that license key. Fingerprints whose
// bindings are all inactive are not listed.
func (s *Service) ListForAdmin(ctx context.Context, adminID kernel.AdminID) ([]WithLicense, error) {
	list, err := s.repo.ListForAdmin(ctx, adminID)
	if err != nil {
		return nil, errx.Wrap(err, "failed to list hardware for admin", errx.TypeInternal)
	}
	return list, nil
}

// ActiveLicenseForFingerprint returns the license currently bound to
// fingerprint, if any. Used by the license package's validate() to confirm
// a fingerprint is still bound to the license it claims (§4.2).
func (s *Service) ActiveLicenseForFingerprint(ctx context.Context, fingerprint string) (*kernel.LicenseID, *string, error) {
	id, key, err := s.repo.ActiveLicenseForFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, nil, errx.Wrap(err, "failed to query active license for fingerprint", errx.TypeInternal)
	}
	return id, key, nil
}

// Get returns a single hardware row by ID.
func (s *Service) Get(ctx context.Context, id string) (*Hardware, error) {
	hw, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound()
	}
	return hw, nil
}

// Deactivate is the end-of-life action for a machine (§4.3).
func (s *Service) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return ErrNotFound()
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return errx.Wrap(err, "failed to deactivate hardware", errx.TypeInternal)
	}
	return nil
}
