package main

import (
	"context"

	"github.com/giro-sh/license-server/internal/audit"
	"github.com/giro-sh/license-server/internal/license"
	"github.com/giro-sh/license-server/internal/payment"
)

// licensePaymentHandler reacts to normalized payment webhook events by
// recording them in the audit ledger, kept at the composition root so
// internal/payment never imports internal/license (§1 bounded-context
// isolation).
type licensePaymentHandler struct {
	licenses *license.Service
	audit    *audit.Service
}

func newLicensePaymentHandler(licenses *license.Service, auditLog *audit.Service) *licensePaymentHandler {
	return &licensePaymentHandler{licenses: licenses, audit: auditLog}
}

// Handle records the event as a payment audit entry. It does not change
// any license: no provider reference is mapped to a license or its expiry.
func (h *licensePaymentHandler) Handle(ctx context.Context, ev payment.Event) error {
	action := audit.ActionPaymentCreated
	switch ev.Type {
	case payment.EventCompleted:
		action = audit.ActionPaymentCompleted
	case payment.EventFailed:
		action = audit.ActionPaymentFailed
	}

	return h.audit.Record(ctx, audit.Entry{
		Action: action,
		Details: map[string]any{
			"provider_ref": ev.ProviderRef,
			"admin_id":     ev.AdminID,
			"amount_cents": ev.AmountCents,
			"currency":     ev.Currency,
		},
	})
}
