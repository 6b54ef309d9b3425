package crypto

import (
	"crypto/ed25519"
	"crypto/rand"

	"agentlink/internal/domain"
)

// GenerateIdentity returns a fresh long-term signing identity for entityID.
func GenerateIdentity(entityID string) (domain.Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return domain.Identity{}, err
	}
	id := domain.Identity{EntityID: entityID}
	copy(id.EdPriv[:], priv)
	copy(id.EdPub[:], pub)
	return id, nil
}

// Sign signs msg with priv and returns the signature.
func Sign(priv domain.Ed25519Private, msg []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv[:]), msg)
}

// Verify verifies sig over msg with pub.
func Verify(pub domain.Ed25519Public, msg, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig)
}
