// Package notify defines the narrow outbound-notification seam. Object
// storage and email providers are out of scope for this service
// (Non-goals), so the only concrete implementation is a console sender,
// which is the sender the container wires.
package notify

import (
	"context"
	"fmt"

	"github.com/giro-sh/license-server/internal/logx"
)

// Sender delivers an operational notification to an admin. Concrete email
// (SES, SMTP) or push backends are left to the deployer; this service
// only needs the seam to exist.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ConsoleSender writes the notification to the structured log, the way
// the teacher's own development-mode OTP notifier writes to stdout.
type ConsoleSender struct{}

func NewConsoleSender() Sender { return &ConsoleSender{} }

func (s *ConsoleSender) Send(_ context.Context, to, subject, body string) error {
	logx.WithFields(logx.Fields{
		"to":      to,
		"subject": subject,
	}).Info(fmt.Sprintf("notify: %s", body))
	return nil
}
