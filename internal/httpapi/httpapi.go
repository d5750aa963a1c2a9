// Package httpapi wires the domain services into Fiber routes (§6). Each
// file groups one route family, following the teacher's RegisterRoutes(app,
// middleware) convention from cmd/servier.go.
package httpapi

import (
	"strconv"
	"time"

	"github.com/giro-sh/license-server/internal/admin"
	"github.com/giro-sh/license-server/internal/gate"
	"github.com/giro-sh/license-server/internal/kernel"
	"github.com/gofiber/fiber/v2"
)

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// authContext extracts the resolved caller from Fiber locals. ResolveAuth
// always sets this, even for anonymous callers.
func authContext(c *fiber.Ctx) *kernel.AuthContext {
	ac, _ := c.Locals("auth").(*kernel.AuthContext)
	if ac == nil {
		return &kernel.AuthContext{Anonymous: true}
	}
	return ac
}

func claims(c *fiber.Ctx) *admin.Claims {
	cl, _ := c.Locals("claims").(*admin.Claims)
	return cl
}

func paginationFromQuery(c *fiber.Ctx) kernel.PaginationOptions {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	size, _ := strconv.Atoi(c.Query("page_size", "50"))
	return kernel.PaginationOptions{Page: page, PageSize: size}
}

// requireAdmin rejects API-key callers and anonymous callers from
// admin-console-only routes (profile management, account creation).
func requireAdmin(c *fiber.Ctx) error {
	ac := authContext(c)
	if !ac.IsValid() || ac.IsAPIKey {
		return gate.ErrForbidden()
	}
	return nil
}
