package crypto

import (
	"crypto/rand"
	"crypto/sha512"
	"fmt"

	"golang.org/x/crypto/curve25519"

	"agentlink/internal/domain"
)

// GenerateX25519 returns a fresh Curve25519 key pair for one session
// attempt. The private key is clamped per RFC 7748. Ephemeral pairs are
// never reused across sessions.
func GenerateX25519() (priv domain.X25519Private, pub domain.X25519Public, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return
	}
	clamp(&priv)
	pb, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return
	}
	copy(pub[:], pb)
	return
}

// DH computes the X25519 shared secret between priv and pub.
func DH(priv domain.X25519Private, pub domain.X25519Public) (out [32]byte, err error) {
	secret, err := curve25519.X25519(priv.Slice(), pub.Slice())
	if err != nil {
		return out, err
	}
	copy(out[:], secret)
	return out, nil
}

// X25519FromEd25519Seed converts an Ed25519 signing key into an X25519
// exchange key by hashing its 32-byte seed, the standard one-way mapping.
// Deployments that reuse signing keys for exchange go through here; the
// conversion rejects malformed input lengths.
func X25519FromEd25519Seed(seed []byte) (domain.X25519Private, error) {
	var priv domain.X25519Private
	if len(seed) != 32 {
		return priv, fmt.Errorf("%w: Ed25519 seed must be 32 bytes, got %d", domain.ErrKeyFormat, len(seed))
	}
	h := sha512.Sum512(seed)
	copy(priv[:], h[:32])
	clamp(&priv)
	return priv, nil
}

func clamp(k *domain.X25519Private) {
	kb := k[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}
