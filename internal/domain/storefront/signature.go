package storefront

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// VerifySignature checks a webhook's HMAC-SHA256 signature. The digest is
// computed over the exact raw request bytes, never a re-serialized JSON
// object (re-serialization changes the byte layout and produces false
// negatives),
// base64-encoded, and compared in constant time against the header value.
func VerifySignature(secret string, payload []byte, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(header)))
}

// SignPayload computes the signature the platform would send for a payload.
// Used by tests and by the local delivery simulator.
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
