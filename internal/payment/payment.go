// Package payment defines the webhook-ingest seam for a payment provider.
// A concrete provider integration (Stripe, Mercado Pago, etc.) is out of
// scope (Non-goals); this package only fixes the shape a provider webhook
// is normalized into before the license subsystem acts on it.
package payment

import (
	"context"
	"time"
)

// EventType is the closed set of payment lifecycle events this service
// reacts to.
type EventType string

const (
	EventCreated   EventType = "created"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
)

// Event is a provider webhook normalized into the shape the license
// subsystem consumes. ProviderRef is the provider's own transaction or
// invoice identifier, kept for idempotency and support lookups.
type Event struct {
	ProviderRef string    `json:"provider_ref"`
	AdminID     string    `json:"admin_id"`
	Type        EventType `json:"type"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	OccurredAt  time.Time `json:"occurred_at"`
	Raw         []byte    `json:"-"`
}

// Verifier checks a webhook payload's signature against the configured
// provider secret before it is parsed into an Event. Concrete providers
// sign differently (HMAC-SHA256 over the raw body, timestamp-tolerant
// schemes, ...); this service only needs the seam.
type Verifier interface {
	Verify(signatureHeader string, rawBody []byte) error
}

// Handler reacts to a normalized payment event, e.g. extending a
// license's expiry or recording a failed-renewal audit entry. Wiring a
// Handler to license.Service is left to the composition root so the
// payment package never imports license.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}
