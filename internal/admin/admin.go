// Package admin implements Identity & Session (§4.1): admin accounts,
// credential verification, refresh tokens and API keys.
package admin

import (
	"net/http"
	"time"

	"github.com/giro-sh/license-server/internal/errx"
	"github.com/giro-sh/license-server/internal/kernel"
)

// Admin is the single principal type in the system: there are no
// "customer" accounts, only admins who issue and manage licenses (§3).
type Admin struct {
	ID           kernel.AdminID `db:"id" json:"id"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Name         string         `db:"name" json:"name"`
	TOTPSecret   string         `db:"totp_secret" json:"-"`
	TOTPEnabled  bool           `db:"totp_enabled" json:"totp_enabled"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// RefreshToken is an opaque, rotating credential exchanged for a new
// access token (§4.1). The token value itself is never stored — only its
// hash — so a leaked database dump cannot be replayed (§7).
type RefreshToken struct {
	ID        string         `db:"id" json:"id"`
	TokenHash string         `db:"token_hash" json:"-"`
	AdminID   kernel.AdminID `db:"admin_id" json:"admin_id"`
	ExpiresAt time.Time      `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	RevokedAt *time.Time     `db:"revoked_at" json:"revoked_at,omitempty"`
}

func (r *RefreshToken) IsExpired(now time.Time) bool { return now.After(r.ExpiresAt) }
func (r *RefreshToken) IsValid(now time.Time) bool   { return r.RevokedAt == nil && !r.IsExpired(now) }

// ApiKey is a long-lived, non-interactive credential for server-to-server
// admission into the license endpoints (§4.1, §6).
type ApiKey struct {
	ID         string         `db:"id" json:"id"`
	AdminID    kernel.AdminID `db:"admin_id" json:"admin_id"`
	KeyHash    string         `db:"key_hash" json:"-"`
	Prefix     string         `db:"prefix" json:"prefix"`
	Name       string         `db:"name" json:"name"`
	IsRevoked  bool           `db:"is_revoked" json:"is_revoked"`
	LastUsedAt *time.Time     `db:"last_used_at" json:"last_used_at,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

var ErrRegistry = errx.NewRegistry("ADMIN")

var (
	CodeNotFound             = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "admin not found")
	CodeEmailTaken           = ErrRegistry.Register("EMAIL_TAKEN", errx.TypeConflict, http.StatusConflict, "email already registered")
	CodeInvalidCredentials   = ErrRegistry.Register("INVALID_CREDENTIALS", errx.TypeAuthorization, http.StatusUnauthorized, "invalid email or password")
	CodeInvalidRefreshToken  = ErrRegistry.Register("INVALID_REFRESH_TOKEN", errx.TypeAuthorization, http.StatusUnauthorized, "invalid or expired refresh token")
	CodeTokenGenFailed       = ErrRegistry.Register("TOKEN_GEN_FAILED", errx.TypeInternal, http.StatusInternalServerError, "failed to generate token")
	CodeTokenInvalid         = ErrRegistry.Register("TOKEN_INVALID", errx.TypeAuthorization, http.StatusUnauthorized, "invalid or expired access token")
	CodeTokenBlacklisted     = ErrRegistry.Register("TOKEN_BLACKLISTED", errx.TypeAuthorization, http.StatusUnauthorized, "token has been revoked")
	CodeAPIKeyNotFound       = ErrRegistry.Register("API_KEY_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "api key not found")
	CodeAPIKeyInvalid        = ErrRegistry.Register("API_KEY_INVALID", errx.TypeAuthorization, http.StatusUnauthorized, "invalid or revoked api key")
	CodeWrongPassword        = ErrRegistry.Register("WRONG_PASSWORD", errx.TypeAuthorization, http.StatusUnauthorized, "current password is incorrect")
	CodeWeakPassword         = ErrRegistry.Register("WEAK_PASSWORD", errx.TypeValidation, http.StatusBadRequest, "password does not meet strength requirements")
)

func ErrNotFound() *errx.Error            { return ErrRegistry.New(CodeNotFound) }
func ErrEmailTaken() *errx.Error          { return ErrRegistry.New(CodeEmailTaken) }
func ErrInvalidCredentials() *errx.Error  { return ErrRegistry.New(CodeInvalidCredentials) }
func ErrInvalidRefreshToken() *errx.Error { return ErrRegistry.New(CodeInvalidRefreshToken) }
func ErrTokenGenFailed() *errx.Error      { return ErrRegistry.New(CodeTokenGenFailed) }
func ErrTokenInvalid() *errx.Error        { return ErrRegistry.New(CodeTokenInvalid) }
func ErrTokenBlacklisted() *errx.Error    { return ErrRegistry.New(CodeTokenBlacklisted) }
func ErrAPIKeyNotFound() *errx.Error      { return ErrRegistry.New(CodeAPIKeyNotFound) }
func ErrAPIKeyInvalid() *errx.Error       { return ErrRegistry.New(CodeAPIKeyInvalid) }
func ErrWrongPassword() *errx.Error       { return ErrRegistry.New(CodeWrongPassword) }
func ErrWeakPassword() *errx.Error        { return ErrRegistry.New(CodeWeakPassword) }
