package registry

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// fingerprintLen is the number of hex characters shown for a secret.
const fingerprintLen = 12

// SecretFingerprint returns a short BLAKE3 digest of a secret, safe to
// put in logs and listings. The secret itself is never logged.
func SecretFingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	sum := blake3.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}
