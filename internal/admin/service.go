package admin

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/giro-sh/license-server/internal/audit"
	"github.com/giro-sh/license-server/internal/errx"
	"github.com/giro-sh/license-server/internal/kernel"
	"github.com/giro-sh/license-server/internal/logx"
	"github.com/google/uuid"
)

// Service is Identity & Session (§4.1).
type Service struct {
	repo        Repository
	refreshRepo RefreshTokenRepository
	apiKeyRepo  ApiKeyRepository
	jwt         *JWTService
	auditLog    *audit.Service
	notifier    EmailNotifier
	refreshTTL  time.Duration
}

// NewService wires Identity & Session. notifier may be nil (tests commonly
// pass nil); a nil notifier just skips the best-effort security email.
func NewService(repo Repository, refreshRepo RefreshTokenRepository, apiKeyRepo ApiKeyRepository, jwt *JWTService, auditLog *audit.Service, notifier EmailNotifier, refreshTTL time.Duration) *Service {
	if refreshTTL == 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &Service{repo: repo, refreshRepo: refreshRepo, apiKeyRepo: apiKeyRepo, jwt: jwt, auditLog: auditLog, notifier: notifier, refreshTTL: refreshTTL}
}

// notifySecurityEvent enqueues a best-effort email and never fails the
// calling operation if the notifier is absent or the enqueue itself errors
// — losing a notification is acceptable, losing a password change is not.
func (s *Service) notifySecurityEvent(ctx context.Context, to, subject, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyEmail(ctx, to, subject, body); err != nil {
		logx.WithError(err).Warn("admin: failed to enqueue security notification")
	}
}

// Session is the pair handed back on register/login/refresh.
type Session struct {
	Admin        Admin
	AccessToken  string
	RefreshToken string
}

// Register creates a new admin account. There is no invitation or
// multi-tenant flow: any caller with access to this endpoint can create an
// account (gated upstream by the Admission Gate, §4.5).
func (s *Service) Register(ctx context.Context, email, password, name, ip string) (*Session, error) {
	if len(password) < 10 {
		return nil, ErrWeakPassword()
	}

	if existing, _ := s.repo.FindByEmail(ctx, email); existing != nil {
		return nil, ErrEmailTaken()
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, errx.Wrap(err, "failed to hash password", errx.TypeInternal)
	}

	now := time.Now().UTC()
	a := Admin{
		ID:           kernel.NewAdminID(uuid.NewString()),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, errx.Wrap(err, "failed to create admin", errx.TypeInternal)
	}

	return s.issueSession(ctx, a, ip)
}

// Login verifies credentials and issues a new session. Failures are
// audited without revealing which factor (email vs password) was wrong.
func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (*Session, error) {
	a, err := s.repo.FindByEmail(ctx, email)
	if err != nil || a == nil {
		_ = s.auditLog.Record(ctx, audit.Entry{Action: audit.ActionLoginFailed, IP: ip, Details: map[string]any{"email": email}})
		return nil, ErrInvalidCredentials()
	}

	if !VerifyPassword(password, a.PasswordHash) {
		_ = s.auditLog.Record(ctx, audit.Entry{Action: audit.ActionLoginFailed, AdminID: &a.ID, IP: ip, Details: map[string]any{"email": email}})
		return nil, ErrInvalidCredentials()
	}

	session, err := s.issueSession(ctx, *a, ip)
	if err != nil {
		return nil, err
	}

	if err := s.auditLog.Record(ctx, audit.Entry{Action: audit.ActionLogin, AdminID: &a.ID, IP: ip, UserAgent: userAgent}); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) issueSession(ctx context.Context, a Admin, ip string) (*Session, error) {
	access, err := s.jwt.GenerateAccessToken(a.ID, a.Email)
	if err != nil {
		return nil, err
	}

	refreshPlain, refreshHash, err := generateOpaqueToken()
	if err != nil {
		return nil, errx.Wrap(err, "failed to generate refresh token", errx.TypeInternal)
	}

	now := time.Now().UTC()
	rt := RefreshToken{
		ID:        uuid.NewString(),
		TokenHash: refreshHash,
		AdminID:   a.ID,
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	if err := s.refreshRepo.Create(ctx, rt); err != nil {
		return nil, errx.Wrap(err, "failed to persist refresh token", errx.TypeInternal)
	}

	return &Session{Admin: a, AccessToken: access, RefreshToken: refreshPlain}, nil
}

// Refresh rotates a refresh token: the old one is revoked and a new pair
// issued atomically from the caller's point of view (§4.1, §7).
func (s *Service) Refresh(ctx context.Context, refreshTokenPlain, ip string) (*Session, error) {
	hash := hashOpaqueToken(refreshTokenPlain)
	rt, err := s.refreshRepo.FindByHash(ctx, hash)
	if err != nil || rt == nil || !rt.IsValid(time.Now().UTC()) {
		return nil, ErrInvalidRefreshToken()
	}

	a, err := s.repo.FindByID(ctx, rt.AdminID)
	if err != nil {
		return nil, ErrInvalidRefreshToken()
	}

	if err := s.refreshRepo.Revoke(ctx, rt.ID); err != nil {
		return nil, errx.Wrap(err, "failed to revoke previous refresh token", errx.TypeInternal)
	}

	return s.issueSession(ctx, *a, ip)
}

// Logout revokes the access token's jti (so it cannot be used again before
// it naturally expires) and the refresh token presented alongside it.
func (s *Service) Logout(ctx context.Context, claims *Claims, refreshTokenPlain, ip string) error {
	if err := s.jwt.Revoke(ctx, claims); err != nil {
		return errx.Wrap(err, "failed to blacklist access token", errx.TypeInternal)
	}

	if refreshTokenPlain != "" {
		hash := hashOpaqueToken(refreshTokenPlain)
		if rt, err := s.refreshRepo.FindByHash(ctx, hash); err == nil && rt != nil {
			_ = s.refreshRepo.Revoke(ctx, rt.ID)
		}
	}

	return s.auditLog.Record(ctx, audit.Entry{Action: audit.ActionLogout, AdminID: &claims.AdminID, IP: ip})
}

// ChangePassword requires the current password and revokes every
// outstanding refresh token, forcing re-authentication everywhere else
// the admin is logged in.
func (s *Service) ChangePassword(ctx context.Context, adminID kernel.AdminID, current, next, ip string) error {
	a, err := s.repo.FindByID(ctx, adminID)
	if err != nil {
		return ErrNotFound()
	}
	if !VerifyPassword(current, a.PasswordHash) {
		return ErrWrongPassword()
	}
	if len(next) < 10 {
		return ErrWeakPassword()
	}

	hash, err := HashPassword(next)
	if err != nil {
		return errx.Wrap(err, "failed to hash password", errx.TypeInternal)
	}
	a.PasswordHash = hash
	a.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, *a); err != nil {
		return errx.Wrap(err, "failed to update admin", errx.TypeInternal)
	}

	if err := s.refreshRepo.RevokeAllForAdmin(ctx, adminID); err != nil {
		return errx.Wrap(err, "failed to revoke outstanding sessions", errx.TypeInternal)
	}

	if err := s.auditLog.Record(ctx, audit.Entry{Action: audit.ActionPasswordReset, AdminID: &adminID, IP: ip}); err != nil {
		return err
	}

	s.notifySecurityEvent(ctx, a.Email, "Your password was changed",
		"Your Giro account password was just changed. If this wasn't you, rotate your credentials immediately and revoke all API keys.")
	return nil
}

func (s *Service) UpdateProfile(ctx context.Context, adminID kernel.AdminID, name string) (*Admin, error) {
	a, err := s.repo.FindByID(ctx, adminID)
	if err != nil {
		return nil, ErrNotFound()
	}
	a.Name = name
	a.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, *a); err != nil {
		return nil, errx.Wrap(err, "failed to update admin", errx.TypeInternal)
	}
	_ = s.auditLog.Record(ctx, audit.Entry{Action: audit.ActionAdminProfileUpdated, AdminID: &adminID})
	return a, nil
}

// CreateAPIKey mints a new key and returns the one-time plaintext
// alongside the persisted record (§4.1).
func (s *Service) CreateAPIKey(ctx context.Context, adminID kernel.AdminID, name string) (plaintext string, key *ApiKey, err error) {
	plaintext, prefix, err := GenerateAPIKeySecret()
	if err != nil {
		return "", nil, errx.Wrap(err, "failed to generate api key", errx.TypeInternal)
	}

	k := ApiKey{
		ID:        uuid.NewString(),
		AdminID:   adminID,
		KeyHash:   HashAPIKeySecret(plaintext),
		Prefix:    prefix,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.apiKeyRepo.Create(ctx, k); err != nil {
		return "", nil, errx.Wrap(err, "failed to persist api key", errx.TypeInternal)
	}

	return plaintext, &k, nil
}

func (s *Service) ListAPIKeys(ctx context.Context, adminID kernel.AdminID) ([]ApiKey, error) {
	keys, err := s.apiKeyRepo.ListForAdmin(ctx, adminID)
	if err != nil {
		return nil, errx.Wrap(err, "failed to list api keys", errx.TypeInternal)
	}
	return keys, nil
}

func (s *Service) RevokeAPIKey(ctx context.Context, adminID kernel.AdminID, id string) error {
	k, err := s.apiKeyRepo.FindByID(ctx, id)
	if err != nil || k.AdminID != adminID {
		return ErrAPIKeyNotFound()
	}
	return s.apiKeyRepo.Revoke(ctx, id)
}

// VerifyAPIKey is the Admission Gate's entry point for API-key auth
// (§4.5): exact-match lookup by hash, then liveness check.
func (s *Service) VerifyAPIKey(ctx context.Context, plaintext string) (*ApiKey, error) {
	hash := HashAPIKeySecret(plaintext)
	k, err := s.apiKeyRepo.FindByHash(ctx, hash)
	if err != nil || k == nil || k.IsRevoked {
		return nil, ErrAPIKeyInvalid()
	}
	_ = s.apiKeyRepo.TouchLastUsed(ctx, k.ID)
	return k, nil
}

// generateOpaqueToken returns (plaintext, hash) for a refresh token: the
// plaintext is handed to the client, only the hash is stored, mirroring
// the CSPRNG approach the teacher uses for OTP codes.
func generateOpaqueToken() (plaintext, hash string, err error) {
	raw := make([]byte, 32)
	if _, err = rand.Read(raw); err != nil {
		return "", "", err
	}
	plaintext = hex.EncodeToString(raw)
	hash = hashOpaqueToken(plaintext)
	return plaintext, hash, nil
}

func hashOpaqueToken(plaintext string) string {
	return HashAPIKeySecret(plaintext)
}
