package httpapi

import (
	"github.com/giro-sh/license-server/internal/kernel"
	"github.com/giro-sh/license-server/internal/license"
	"github.com/gofiber/fiber/v2"
)

// LicenseHandlers implements the /licenses route group (§6): the
// admin-console CRUD surface plus the desktop-facing activate/validate
// verbs, distinguished by which credential resolveAuth populated.
type LicenseHandlers struct {
	licenses *license.Service
}

func NewLicenseHandlers(licenses *license.Service) *LicenseHandlers {
	return &LicenseHandlers{licenses: licenses}
}

func (h *LicenseHandlers) RegisterRoutes(router fiber.Router, resolveAuth fiber.Handler) {
	g := router.Group("/licenses", resolveAuth)
	g.Get("/", h.list)
	g.Post("/", h.create)
	g.Get("/stats", h.stats)
	g.Post("/restore", h.restore)
	g.Get("/:key", h.get)
	g.Delete("/:key", h.revoke)
	g.Post("/:key/transfer", h.transfer)
	g.Post("/:key/activate", h.activate)
	g.Post("/:key/validate", h.validate)
	g.Post("/:key/admin", h.reassignAdmin)
	g.Get("/:key/bindings", h.listBindings)
}

type createLicenseRequest struct {
	Plan      string  `json:"plan"`
	ExpiresAt *string `json:"expires_at,omitempty"`
}

func (h *LicenseHandlers) create(c *fiber.Ctx) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	ac := authContext(c)
	var req createLicenseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}

	in := license.CreateInput{AdminID: *ac.AdminID, Plan: license.Plan(req.Plan)}
	if req.ExpiresAt != nil {
		t, err := parseRFC3339(*req.ExpiresAt)
		if err != nil {
			return badRequest("invalid expires_at")
		}
		in.ExpiresAt = &t
	}

	lic, err := h.licenses.Create(c.Context(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(lic)
}

func (h *LicenseHandlers) list(c *fiber.Ctx) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	ac := authContext(c)
	page, err := h.licenses.List(c.Context(), *ac.AdminID, paginationFromQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *LicenseHandlers) stats(c *fiber.Ctx) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	ac := authContext(c)
	stats, err := h.licenses.Stats(c.Context(), *ac.AdminID)
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (h *LicenseHandlers) get(c *fiber.Ctx) error {
	lic, err := h.licenses.GetByKey(c.Context(), c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(lic)
}

func (h *LicenseHandlers) revoke(c *fiber.Ctx) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	lic, err := h.licenses.GetByKey(c.Context(), c.Params("key"))
	if err != nil {
		return err
	}
	var req reasonRequest
	_ = c.BodyParser(&req)
	updated, err := h.licenses.Revoke(c.Context(), lic.ID, req.Reason, c.IP())
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type restoreRequest struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

func (h *LicenseHandlers) restore(c *fiber.Ctx) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	var req restoreRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	lic, err := h.licenses.RestoreByAdmin(c.Context(), kernel.NewLicenseID(req.ID), req.Reason, c.IP())
	if err != nil {
		return err
	}
	return c.JSON(lic)
}

type transferRequest struct {
	NewFingerprint string `json:"new_fingerprint"`
	Reason         string `json:"reason"`
}

func (h *LicenseHandlers) transfer(c *fiber.Ctx) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	lic, err := h.licenses.GetByKey(c.Context(), c.Params("key"))
	if err != nil {
		return err
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	updated, err := h.licenses.Transfer(c.Context(), lic.ID, req.NewFingerprint, req.Reason, c.IP())
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

type reassignAdminRequest struct {
	NewAdminID string `json:"new_admin_id"`
	Reason     string `json:"reason"`
}

func (h *LicenseHandlers) reassignAdmin(c *fiber.Ctx) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	lic, err := h.licenses.GetByKey(c.Context(), c.Params("key"))
	if err != nil {
		return err
	}
	var req reassignAdminRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	updated, err := h.licenses.ReassignAdmin(c.Context(), lic.ID, kernel.NewAdminID(req.NewAdminID), req.Reason, c.IP())
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

type activateRequest struct {
	Key         string `json:"key"`
	Fingerprint string `json:"fingerprint"`
	MachineName string `json:"machine_name"`
	OSVersion   string `json:"os_version"`
	CPU         string `json:"cpu"`
}

func (h *LicenseHandlers) activate(c *fiber.Ctx) error {
	var req activateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	lic, err := h.licenses.Activate(c.Context(), license.ActivateInput{
		Key:         c.Params("key"),
		Fingerprint: req.Fingerprint,
		MachineName: req.MachineName,
		OSVersion:   req.OSVersion,
		CPU:         req.CPU,
		IP:          c.IP(),
	})
	if err != nil {
		return err
	}
	return c.JSON(lic)
}

type validateRequest struct {
	Fingerprint string `json:"fingerprint"`
}

func (h *LicenseHandlers) validate(c *fiber.Ctx) error {
	var req validateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	lic, err := h.licenses.Validate(c.Context(), c.Params("key"), req.Fingerprint, c.IP())
	if err != nil {
		return err
	}
	return c.JSON(lic)
}

func (h *LicenseHandlers) listBindings(c *fiber.Ctx) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	lic, err := h.licenses.GetByKey(c.Context(), c.Params("key"))
	if err != nil {
		return err
	}
	bindings, err := h.licenses.ListBindings(c.Context(), lic.ID)
	if err != nil {
		return err
	}
	return c.JSON(bindings)
}
