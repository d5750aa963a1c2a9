// Package gate implements the Admission Gate (§4.5): rate limiting, clock
// drift enforcement and credential resolution, applied ahead of every
// other subsystem.
package gate

import (
	"net/http"

	"github.com/giro-sh/license-server/internal/errx"
)

var ErrRegistry = errx.NewRegistry("GATE")

var (
	CodeRateLimited     = ErrRegistry.Register("RATE_LIMITED", errx.TypeBusiness, http.StatusTooManyRequests, "too many requests")
	CodeClockDrift      = ErrRegistry.Register("CLOCK_DRIFT", errx.TypeValidation, http.StatusBadRequest, "client clock is too far from server time")
	CodeUnauthenticated = ErrRegistry.Register("UNAUTHENTICATED", errx.TypeAuthorization, http.StatusUnauthorized, "authentication required")
	CodeAmbiguousAuth   = ErrRegistry.Register("AMBIGUOUS_AUTH", errx.TypeValidation, http.StatusBadRequest, "more than one credential supplied")
	CodeForbidden       = ErrRegistry.Register("FORBIDDEN", errx.TypeAuthorization, http.StatusForbidden, "access denied")
)

func ErrRateLimited() *errx.Error     { return ErrRegistry.New(CodeRateLimited) }
func ErrClockDrift() *errx.Error      { return ErrRegistry.New(CodeClockDrift) }
func ErrUnauthenticated() *errx.Error { return ErrRegistry.New(CodeUnauthenticated) }
func ErrAmbiguousAuth() *errx.Error   { return ErrRegistry.New(CodeAmbiguousAuth) }
func ErrForbidden() *errx.Error       { return ErrRegistry.New(CodeForbidden) }
