// Package channel provides the authenticated encryption layer of an
// established session.
//
// # Overview
//
// Payloads are sealed with ChaCha20-Poly1305 under the session's encryption
// key and a fresh random nonce per call. The envelope metadata (sender,
// sequence number, timestamp) is bound into the AEAD tag through an
// HMAC-SHA256 keyed by the session's independent authentication key, used as
// associated data. The metadata itself is not secret, but tampering with it
// is detectable.
//
// # Errors
//
// Open fails closed with domain.ErrDecryptionFailed on any tag mismatch;
// partial plaintext is never returned. Nonce reuse under one key would break
// the AEAD, so nonces are always drawn fresh from crypto/rand.
package channel
