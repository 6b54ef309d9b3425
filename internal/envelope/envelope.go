package envelope

import (
	"crypto/rand"
	"fmt"
	"time"

	"agentlink/internal/crypto"
	"agentlink/internal/domain"
)

// New returns an unsigned envelope with a fresh nonce and a timezone-aware
// timestamp. The caller fills in the payload and signs before sending.
func New(version uint16, typ domain.MessageType, senderID string) (*domain.Envelope, error) {
	nonce, err := NewNonce()
	if err != nil {
		return nil, err
	}
	return &domain.Envelope{
		Version:   version,
		Type:      typ,
		SenderID:  senderID,
		Timestamp: time.Now().UTC(),
		Nonce:     nonce,
	}, nil
}

// NewNonce draws a fresh 128-bit random nonce.
func NewNonce() (domain.Nonce, error) {
	var n domain.Nonce
	if _, err := rand.Read(n[:]); err != nil {
		return n, err
	}
	return n, nil
}

// Sign computes the signature over env's canonical bytes and stores it.
func Sign(env *domain.Envelope, priv domain.Ed25519Private) {
	env.Signature = crypto.Sign(priv, CanonicalBytes(env))
}

// Verify checks env's signature against pub. It must be called before any
// other field of the envelope is interpreted.
func Verify(env *domain.Envelope, pub domain.Ed25519Public) error {
	if !env.Type.Valid() {
		return fmt.Errorf("%w: unknown message type %q", domain.ErrInvalidSignature, env.Type)
	}
	if len(env.Signature) == 0 {
		return fmt.Errorf("%w: unsigned envelope", domain.ErrInvalidSignature)
	}
	if !crypto.Verify(pub, CanonicalBytes(env), env.Signature) {
		return fmt.Errorf("%w: sender %q type %q", domain.ErrInvalidSignature, env.SenderID, env.Type)
	}
	return nil
}
