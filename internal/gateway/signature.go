package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// SignPayload computes the hex-encoded HMAC-SHA512 signature Paystack attaches
// to webhook deliveries, keyed by the shared secret.
func SignPayload(secret, body []byte) string {
	mac := hmac.New(sha512.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature against the untouched raw body
// bytes. Re-serializing the payload before this check would invalidate it.
func VerifySignature(secret, body []byte, signature string) bool {
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, secret)
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}
