package gate

import (
	"strings"
	"time"

	"github.com/giro-sh/license-server/internal/admin"
	"github.com/giro-sh/license-server/internal/kernel"
	"github.com/gofiber/fiber/v2"
)

// Middleware wires the rate limiter, clock-drift check and credential
// resolver into Fiber, mirroring the teacher's TokenMiddleware shape but
// widened to resolve exactly one of {admin JWT, API key, anonymous} per
// request (§4.5).
type Middleware struct {
	limiter        *RateLimiter
	jwt            *admin.JWTService
	admins         *admin.Service
	driftTolerance time.Duration
}

func NewMiddleware(limiter *RateLimiter, jwt *admin.JWTService, admins *admin.Service, driftTolerance time.Duration) *Middleware {
	return &Middleware{limiter: limiter, jwt: jwt, admins: admins, driftTolerance: driftTolerance}
}

// RateLimitGeneral enforces the general-traffic ceiling.
func (m *Middleware) RateLimitGeneral() fiber.Handler {
	return func(c *fiber.Ctx) error {
		allowed, err := m.limiter.AllowGeneral(c.Context(), c.IP())
		if err != nil {
			return err
		}
		if !allowed {
			return ErrRateLimited()
		}
		return c.Next()
	}
}

// RateLimitAuth enforces the tighter authentication-endpoint ceiling.
func (m *Middleware) RateLimitAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		allowed, err := m.limiter.AllowAuth(c.Context(), c.IP())
		if err != nil {
			return err
		}
		if !allowed {
			return ErrRateLimited()
		}
		return c.Next()
	}
}

// ClockDrift rejects requests whose X-Client-Time header disagrees with
// the server by more than the configured tolerance. Requests without the
// header are passed through: drift checking only applies to clients that
// opt in by supplying it (§4.5).
func (m *Middleware) ClockDrift() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("X-Client-Time")
		if header == "" {
			return c.Next()
		}
		clientTime, err := time.Parse(time.RFC3339, header)
		if err != nil {
			return ErrClockDrift().WithDetail("error", "unparseable X-Client-Time header")
		}
		if !CheckDrift(clientTime, time.Now().UTC(), m.driftTolerance) {
			return ErrClockDrift()
		}
		return c.Next()
	}
}

// ResolveAuth populates kernel.AuthContext from exactly one of: a Bearer
// JWT, an X-API-Key header, or neither (anonymous). Supplying both is
// rejected rather than silently preferring one (§4.5).
func (m *Middleware) ResolveAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		bearer := bearerToken(c.Get("Authorization"))
		apiKey := c.Get("X-API-Key")

		if bearer != "" && apiKey != "" {
			return ErrAmbiguousAuth()
		}

		switch {
		case bearer != "":
			claims, err := m.jwt.ValidateAccessToken(c.Context(), bearer)
			if err != nil {
				return err
			}
			c.Locals("auth", &kernel.AuthContext{
				AdminID: &claims.AdminID,
				Email:   claims.Email,
				Role:    kernel.RoleAdmin,
			})
			c.Locals("claims", claims)

		case apiKey != "":
			key, err := m.admins.VerifyAPIKey(c.Context(), apiKey)
			if err != nil {
				return err
			}
			c.Locals("auth", &kernel.AuthContext{
				AdminID:  &key.AdminID,
				Role:     kernel.RoleAdmin,
				IsAPIKey: true,
				APIKeyID: key.ID,
			})

		default:
			c.Locals("auth", &kernel.AuthContext{Anonymous: true})
		}

		return c.Next()
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ac, ok := c.Locals("auth").(*kernel.AuthContext)
		if !ok || !ac.IsValid() {
			return ErrUnauthenticated()
		}
		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}
