package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/giro-sh/license-server/internal/errx"
)

var ErrRegistry = errx.NewRegistry("PAYMENT")

var CodeInvalidSignature = ErrRegistry.Register("INVALID_SIGNATURE", errx.TypeAuthorization, 401, "invalid webhook signature")

func ErrInvalidSignature() *errx.Error { return ErrRegistry.New(CodeInvalidSignature) }

// HMACVerifier checks a webhook's X-Webhook-Signature header: a
// hex-encoded HMAC-SHA256 of the raw request body under the provider's
// shared secret.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) Verify(signatureHeader string, rawBody []byte) error {
	if signatureHeader == "" {
		return ErrInvalidSignature()
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(signatureHeader), []byte(expected)) {
		return ErrInvalidSignature()
	}
	return nil
}
