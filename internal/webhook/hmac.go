package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// VerifySignature verifies an HMAC-SHA256 signature against the raw
// request body using constant-time comparison (crypto/subtle).
//
// Accepted signature formats:
//   - "<hex>" (Gitea X-Gitea-Signature)
//   - "sha256=<hex>" (GitHub-style prefix, tolerated)
//
// Returns nil if the signature is valid. All failures, including empty
// inputs, return the same generic error so nothing about the expected
// signature leaks.
func VerifySignature(body []byte, signature, secret string) error {
	if secret == "" || signature == "" {
		return errVerificationFailed()
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	presented, err := decodeSignature(signature)
	if err != nil {
		return errVerificationFailed()
	}

	if subtle.ConstantTimeCompare(expected, presented) != 1 {
		return errVerificationFailed()
	}
	return nil
}

func errVerificationFailed() error {
	return fmt.Errorf("webhook verification failed")
}

// decodeSignature extracts the raw MAC bytes from a signature header value.
func decodeSignature(signature string) ([]byte, error) {
	if strings.HasPrefix(signature, "sha256=") {
		return hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	}
	return hex.DecodeString(signature)
}

// computeSignature returns the hex-encoded HMAC-SHA256 of body under
// secret. Used by tests.
func computeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
