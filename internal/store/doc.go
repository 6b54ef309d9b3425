// Package store persists local protocol state on disk.
//
// # Overview
//
// Two things live under the state directory:
//
//   - identity.enc: the local long-term identity, encrypted under a
//     passphrase with scrypt + ChaCha20-Poly1305.
//   - peers.json: the known-peer directory (entity id, signing key,
//     address), plaintext since it holds only public material.
//
// All writes go through a temp file and an atomic rename so a crash never
// leaves a half-written file behind.
//
// # Errors
//
// LoadIdentity returns ErrWrongPassphrase when the passphrase is incorrect
// or the blob has been modified; the two cases are indistinguishable by
// construction.
package store
