package httpapi

import (
	"github.com/giro-sh/license-server/internal/admin"
	"github.com/gofiber/fiber/v2"
)

// AuthHandlers implements the /auth route group (§6).
type AuthHandlers struct {
	admins *admin.Service
}

func NewAuthHandlers(admins *admin.Service) *AuthHandlers {
	return &AuthHandlers{admins: admins}
}

// RegisterRoutes mounts /auth under router, with rateLimitAuth applied to
// every endpoint (tighter ceiling, per §4.5) and resolveAuth applied only
// where a caller identity is required.
func (h *AuthHandlers) RegisterRoutes(router fiber.Router, rateLimitAuth, resolveAuth fiber.Handler) {
	g := router.Group("/auth", rateLimitAuth)
	g.Post("/register", h.register)
	g.Post("/login", h.login)
	g.Post("/refresh", h.refresh)
	g.Post("/logout", resolveAuth, h.logout)
	g.Post("/change-password", resolveAuth, h.changePassword)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *AuthHandlers) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	session, err := h.admins.Register(c.Context(), req.Email, req.Password, req.Name, c.IP())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(sessionResponse(session))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandlers) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	session, err := h.admins.Login(c.Context(), req.Email, req.Password, c.IP(), c.Get("User-Agent"))
	if err != nil {
		return err
	}
	return c.JSON(sessionResponse(session))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandlers) refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	session, err := h.admins.Refresh(c.Context(), req.RefreshToken, c.IP())
	if err != nil {
		return err
	}
	return c.JSON(sessionResponse(session))
}

func (h *AuthHandlers) logout(c *fiber.Ctx) error {
	cl := claims(c)
	if cl == nil {
		return badRequest("missing access token")
	}
	var req refreshRequest
	_ = c.BodyParser(&req)
	if err := h.admins.Logout(c.Context(), cl, req.RefreshToken, c.IP()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *AuthHandlers) changePassword(c *fiber.Ctx) error {
	ac := authContext(c)
	if !ac.IsValid() || ac.AdminID == nil {
		return badRequest("missing caller identity")
	}
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := h.admins.ChangePassword(c.Context(), *ac.AdminID, req.CurrentPassword, req.NewPassword, c.IP()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func sessionResponse(s *admin.Session) fiber.Map {
	return fiber.Map{
		"admin":         s.Admin,
		"access_token":  s.AccessToken,
		"refresh_token": s.RefreshToken,
	}
}
