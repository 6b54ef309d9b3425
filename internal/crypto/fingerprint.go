package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// fingerprintLen is how many digest bytes survive truncation.
const fingerprintLen = 10

// Fingerprint renders a short, human-comparable identifier for a public
// key: the leading bytes of its SHA-256 digest, hex encoded. Long enough to
// compare out-of-band, short enough to read aloud.
func Fingerprint(pub []byte) string {
	digest := sha256.Sum256(pub)
	return hex.EncodeToString(digest[:fingerprintLen])
}
