package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// SignatureHeader carries the storefront's hex-encoded HMAC-SHA256 of the raw
// request body.
const SignatureHeader = "X-Signature"

// Verifier authenticates a raw webhook body against its presented signature.
type Verifier interface {
	Verify(body []byte, signature string) error
}

// HMACVerifier checks a hex-encoded HMAC-SHA256 signature computed over the
// body bytes exactly as received. The comparison is constant time.
type HMACVerifier struct {
	Secret string
}

func (v HMACVerifier) Verify(body []byte, signature string) error {
	secret := strings.TrimSpace(v.Secret)
	if secret == "" {
		return fmt.Errorf("webhooks: signing secret is required")
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return fmt.Errorf("webhooks: %s signature header is required", SignatureHeader)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	expected := mac.Sum(nil)

	decoded, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("webhooks: decode hex signature: %w", err)
	}
	if subtle.ConstantTimeCompare(decoded, expected) != 1 {
		return fmt.Errorf("webhooks: signature verification failed")
	}
	return nil
}

// Sign computes the signature a sender would attach for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

var _ Verifier = HMACVerifier{}
