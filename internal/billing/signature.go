package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignPayload computes the HMAC-SHA256 signature the billing provider is
// expected to send alongside an event payload.
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the payload against the presented signature in
// constant time.
func VerifySignature(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := SignPayload(secret, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
