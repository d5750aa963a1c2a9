package license

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// keyAlphabet excludes visually ambiguous characters (I, O, 0, 1), the way
// most desktop-software key formats do.
const keyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const keySegments = 4
const keySegmentLen = 4

// GenerateKey produces a key of the form GIRO-XXXX-XXXX-XXXX-XXXX using a
// CSPRNG, the same rand.Int-per-character approach the teacher's OTP
// generator uses for decimal codes.
func GenerateKey() (string, error) {
	var segs [keySegments]string
	for i := range segs {
		seg, err := randomSegment(keySegmentLen)
		if err != nil {
			return "", err
		}
		segs[i] = seg
	}
	return "GIRO-" + strings.Join(segs[:], "-"), nil
}

func randomSegment(length int) (string, error) {
	b := make([]byte, length)
	max := big.NewInt(int64(len(keyAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = keyAlphabet[n.Int64()]
	}
	return string(b), nil
}

// NormalizeKey upper-cases a user-supplied key and strips every space —
// leading, trailing, or interior — so "giro-abcd-..." and
// "GIRO- ABCD -..." both validate identically (§4.2, §6).
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, " ", ""))
}

// ValidKeyFormat reports whether key matches the GIRO-XXXX-XXXX-XXXX-XXXX
// shape using only characters from keyAlphabet.
func ValidKeyFormat(key string) bool {
	parts := strings.Split(key, "-")
	if len(parts) != keySegments+1 {
		return false
	}
	if parts[0] != "GIRO" {
		return false
	}
	for _, seg := range parts[1:] {
		if len(seg) != keySegmentLen {
			return false
		}
		for _, c := range seg {
			if !strings.ContainsRune(keyAlphabet, c) {
				return false
			}
		}
	}
	return true
}
