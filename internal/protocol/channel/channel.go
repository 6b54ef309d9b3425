package channel

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/crypto/chacha20poly1305"

	"agentlink/internal/crypto"
	"agentlink/internal/domain"
)

// NonceSize is the AEAD encryption-nonce length on the wire.
const NonceSize = chacha20poly1305.NonceSize

// Metadata is the envelope context bound into every ciphertext.
type Metadata struct {
	SenderID  string
	Sequence  uint64
	Timestamp time.Time
}

// Seal encrypts plaintext under the session keys with a fresh random nonce.
func Seal(keys domain.SessionKeys, meta Metadata, plaintext []byte) (ciphertext, nonce []byte, err error) {
	aead, err := chacha20poly1305.New(keys.EncryptionKey[:])
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}
	ad := bindMetadata(keys, meta)
	ciphertext = aead.Seal(nil, nonce, plaintext, ad)
	crypto.Wipe(ad)
	return ciphertext, nonce, nil
}

// Open decrypts a ciphertext produced by Seal. Any tag mismatch, including
// one caused by mutated metadata, yields domain.ErrDecryptionFailed.
func Open(keys domain.SessionKeys, meta Metadata, ciphertext, nonce []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: encryption nonce must be %d bytes, got %d",
			domain.ErrDecryptionFailed, NonceSize, len(nonce))
	}
	aead, err := chacha20poly1305.New(keys.EncryptionKey[:])
	if err != nil {
		return nil, err
	}
	ad := bindMetadata(keys, meta)
	plaintext, err := aead.Open(nil, nonce, ciphertext, ad)
	crypto.Wipe(ad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// bindMetadata folds the auth key and the canonical metadata bytes into a
// single MAC used as AEAD associated data.
func bindMetadata(keys domain.SessionKeys, meta Metadata) []byte {
	mac := hmac.New(sha256.New, keys.AuthKey[:])

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(meta.SenderID)))
	mac.Write(n[:])
	mac.Write([]byte(meta.SenderID))

	binary.BigEndian.PutUint64(n[:], meta.Sequence)
	mac.Write(n[:])

	binary.BigEndian.PutUint64(n[:], uint64(meta.Timestamp.UnixNano()))
	mac.Write(n[:])

	return mac.Sum(nil)
}
