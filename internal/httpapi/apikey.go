package httpapi

import (
	"github.com/giro-sh/license-server/internal/admin"
	"github.com/gofiber/fiber/v2"
)

// APIKeyHandlers implements the /api-keys route group (§6).
type APIKeyHandlers struct {
	admins *admin.Service
}

func NewAPIKeyHandlers(admins *admin.Service) *APIKeyHandlers {
	return &APIKeyHandlers{admins: admins}
}

func (h *APIKeyHandlers) RegisterRoutes(router fiber.Router, resolveAuth fiber.Handler) {
	g := router.Group("/api-keys", resolveAuth)
	g.Get("/", h.list)
	g.Post("/", h.create)
	g.Delete("/:id", h.revoke)
}

type createAPIKeyRequest struct {
	Name string `json:"name"`
}

func (h *APIKeyHandlers) create(c *fiber.Ctx) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	ac := authContext(c)
	var req createAPIKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	plaintext, key, err := h.admins.CreateAPIKey(c.Context(), *ac.AdminID, req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"api_key": key,
		"secret":  plaintext,
	})
}

func (h *APIKeyHandlers) list(c *fiber.Ctx) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	ac := authContext(c)
	keys, err := h.admins.ListAPIKeys(c.Context(), *ac.AdminID)
	if err != nil {
		return err
	}
	return c.JSON(keys)
}

func (h *APIKeyHandlers) revoke(c *fiber.Ctx) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	ac := authContext(c)
	if err := h.admins.RevokeAPIKey(c.Context(), *ac.AdminID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
