package httpapi

import (
	"github.com/giro-sh/license-server/internal/hardware"
	"github.com/gofiber/fiber/v2"
)

// HardwareHandlers implements the /hardware route group (§6).
type HardwareHandlers struct {
	hardware *hardware.Service
}

func NewHardwareHandlers(hw *hardware.Service) *HardwareHandlers {
	return &HardwareHandlers{hardware: hw}
}

func (h *HardwareHandlers) RegisterRoutes(router fiber.Router, resolveAuth fiber.Handler) {
	g := router.Group("/hardware", resolveAuth)
	g.Get("/", h.list)
	g.Get("/:id", h.get)
	g.Delete("/:id", h.deactivate)
	g.Post("/:id/deactivate", h.deactivate)
}

func (h *HardwareHandlers) list(c *fiber.Ctx) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	ac := authContext(c)
	list, err := h.hardware.ListForAdmin(c.Context(), *ac.AdminID)
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (h *HardwareHandlers) get(c *fiber.Ctx) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	hw, err := h.hardware.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(hw)
}

func (h *HardwareHandlers) deactivate(c *fiber.Ctx) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	if err := h.hardware.Deactivate(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
