package gateway

import "testing"

func TestVerifySignature(t *testing.T) {
	secret := []byte("sk_test_secret")
	body := []byte(`{"event":"charge.success","data":{"reference":"ref_1"}}`)

	sig := SignPayload(secret, body)
	if !VerifySignature(secret, body, sig) {
		t.Fatal("expected signature to verify")
	}

	if VerifySignature([]byte("wrong_secret"), body, sig) {
		t.Fatal("signature verified with wrong secret")
	}

	// Any change to the raw bytes must break verification.
	tampered := append([]byte(nil), body...)
	tampered[len(tampered)-2] = '2'
	if VerifySignature(secret, tampered, sig) {
		t.Fatal("signature verified over tampered body")
	}

	if VerifySignature(secret, body, "not-hex") {
		t.Fatal("malformed signature must not verify")
	}
}
