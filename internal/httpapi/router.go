package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/giro-sh/license-server/internal/gate"
	"github.com/giro-sh/license-server/internal/payment"
)

// Services bundles every handler group plus the admission gate middleware,
// mirroring the teacher's Container→RegisterRoutes composition in
// cmd/servier.go.
type Services struct {
	Auth      *AuthHandlers
	Profile   *ProfileHandlers
	Licenses  *LicenseHandlers
	Hardware  *HardwareHandlers
	APIKeys   *APIKeyHandlers
	Health    *HealthHandlers
	Gate      *gate.Middleware
	Payment   *PaymentHandlers
}

// RegisterRoutes mounts every route group on app, applying the admission
// gate ahead of the domain handlers (§4.5).
func (s *Services) RegisterRoutes(app *fiber.App) {
	app.Use(s.Gate.RateLimitGeneral())
	app.Use(s.Gate.ClockDrift())

	s.Health.RegisterRoutes(app)
	s.Auth.RegisterRoutes(app, s.Gate.RateLimitAuth(), s.Gate.ResolveAuth())
	s.Profile.RegisterRoutes(app, s.Gate.ResolveAuth())
	s.Licenses.RegisterRoutes(app, s.Gate.ResolveAuth())
	s.Hardware.RegisterRoutes(app, s.Gate.ResolveAuth())
	s.APIKeys.RegisterRoutes(app, s.Gate.ResolveAuth())
	if s.Payment != nil {
		s.Payment.RegisterRoutes(app)
	}
}

// PaymentHandlers implements the webhook-ingest endpoint backing the
// Payment provider integration named in SPEC_FULL.md's domain stack
// (§1 scope: webhook ingest only, no outbound provider calls).
type PaymentHandlers struct {
	verifier payment.Verifier
	handler  payment.Handler
}

func NewPaymentHandlers(verifier payment.Verifier, handler payment.Handler) *PaymentHandlers {
	return &PaymentHandlers{verifier: verifier, handler: handler}
}

func (h *PaymentHandlers) RegisterRoutes(router fiber.Router) {
	router.Post("/payments/webhook", h.webhook)
}

func (h *PaymentHandlers) webhook(c *fiber.Ctx) error {
	raw := c.Body()
	if err := h.verifier.Verify(c.Get("X-Webhook-Signature"), raw); err != nil {
		return err
	}

	var ev payment.Event
	if err := c.BodyParser(&ev); err != nil {
		return badRequest("invalid webhook payload")
	}
	ev.Raw = raw

	if err := h.handler.Handle(c.Context(), ev); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
