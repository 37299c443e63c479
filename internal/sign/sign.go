// Package sign implements the shared-secret message signature both
// integration directions use: lowercase hex HMAC-SHA256 over the exact
// request body bytes.
package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Sign returns the lowercase hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is the valid signature of body under secret.
// The comparison is constant time. A missing, truncated or non-hex sig
// simply fails verification.
func Verify(secret string, body []byte, sig string) bool {
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return subtle.ConstantTimeCompare(mac.Sum(nil), want) == 1
}
