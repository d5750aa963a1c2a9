package admin

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

const apiKeyPrefix = "giro_sk_live_"
const apiKeySecretBytes = 32

// GenerateAPIKeySecret returns (plaintext, displayPrefix). The plaintext is
// shown to the admin exactly once; only its SHA-256 hash and a short
// display prefix ("giro_sk_live_ab12...yz89") are ever persisted (§4.1).
// A fast hash is deliberate here, unlike HashPassword's Argon2id: the key
// already carries 256 bits of CSPRNG entropy, so a slow KDF buys nothing
// and would make every API-authenticated request pay Argon2's cost.
func GenerateAPIKeySecret() (plaintext, displayPrefix string, err error) {
	raw := make([]byte, apiKeySecretBytes)
	if _, err = rand.Read(raw); err != nil {
		return "", "", err
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)
	plaintext = apiKeyPrefix + secret
	displayPrefix = maskKey(plaintext)
	return plaintext, displayPrefix, nil
}

// maskKey renders a display-safe form of a full key: the prefix, the first
// four and last four characters of the secret, with the middle elided.
func maskKey(full string) string {
	secret := strings.TrimPrefix(full, apiKeyPrefix)
	if len(secret) <= 8 {
		return apiKeyPrefix + "****"
	}
	return apiKeyPrefix + secret[:4] + "..." + secret[len(secret)-4:]
}

// HashAPIKeySecret returns the hex-encoded SHA-256 digest used both to
// store and to look up an API key by exact match.
func HashAPIKeySecret(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// VerifyAPIKeySecret does a constant-time comparison of two hex digests.
func VerifyAPIKeySecret(plaintext, storedHash string) bool {
	if plaintext == "" {
		return false
	}
	candidate := HashAPIKeySecret(plaintext)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedHash)) == 1
}
