package kdf

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"agentlink/internal/crypto"
	"agentlink/internal/domain"
)

// Domain-separation labels. Changing either is a wire-breaking change.
const (
	labelEncryption = "agentlink/v1|enc"
	labelAuth       = "agentlink/v1|auth"
	labelConfirm    = "agentlink/v1|confirm"
)

// DeriveSessionKeys expands secret into independent encryption and
// authentication keys.
func DeriveSessionKeys(secret [32]byte) (domain.SessionKeys, error) {
	var keys domain.SessionKeys
	if err := expand(secret[:], labelEncryption, keys.EncryptionKey[:]); err != nil {
		return domain.SessionKeys{}, err
	}
	if err := expand(secret[:], labelAuth, keys.AuthKey[:]); err != nil {
		return domain.SessionKeys{}, err
	}
	return keys, nil
}

// ConfirmationFingerprint returns a hash over the derived key set. It is
// safe to send: the fingerprint commits to the keys without revealing them.
func ConfirmationFingerprint(keys domain.SessionKeys) []byte {
	h := sha256.New()
	h.Write([]byte(labelConfirm))
	h.Write(keys.EncryptionKey[:])
	h.Write(keys.AuthKey[:])
	return h.Sum(nil)
}

func expand(secret []byte, label string, out []byte) error {
	r := hkdf.New(sha256.New, secret, nil, []byte(label))
	if _, err := io.ReadFull(r, out); err != nil {
		// Wipe any partial output before failing.
		crypto.Wipe(out)
		return err
	}
	return nil
}
