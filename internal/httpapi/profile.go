package httpapi

import (
	"github.com/giro-sh/license-server/internal/admin"
	"github.com/gofiber/fiber/v2"
)

// ProfileHandlers implements the /profile route group (§6): self-service
// account management for the authenticated admin.
type ProfileHandlers struct {
	admins *admin.Service
}

func NewProfileHandlers(admins *admin.Service) *ProfileHandlers {
	return &ProfileHandlers{admins: admins}
}

func (h *ProfileHandlers) RegisterRoutes(router fiber.Router, resolveAuth fiber.Handler) {
	g := router.Group("/profile", resolveAuth)
	g.Put("/", h.updateProfile)
	g.Post("/password", h.setPassword)
}

type updateProfileRequest struct {
	Name string `json:"name"`
}

func (h *ProfileHandlers) updateProfile(c *fiber.Ctx) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	ac := authContext(c)
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	a, err := h.admins.UpdateProfile(c.Context(), *ac.AdminID, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(a)
}

func (h *ProfileHandlers) setPassword(c *fiber.Ctx) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	ac := authContext(c)
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := h.admins.ChangePassword(c.Context(), *ac.AdminID, req.CurrentPassword, req.NewPassword, c.IP()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
