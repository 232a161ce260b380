package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the HMAC-SHA256 of body with the given secret and returns
// the lowercase hex digest. The body must be the canonical byte form of the
// payload so that retried deliveries produce identical signatures.
func Sign(body []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify recomputes the signature for body and compares it against the
// provided hex digest in constant time.
func Verify(body []byte, providedHex, secret string) bool {
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(providedHex))
}
