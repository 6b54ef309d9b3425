// Package kdf expands a handshake's shared secret into the per-session key
// set.
//
// # Overview
//
// Derivation uses HKDF with SHA-256 and domain-separated info labels, so the
// encryption key and the authentication key are cryptographically independent
// even though both come from the same 32-byte secret. Derivation is
// deterministic: both handshake sides feed the identical secret and read the
// identical keys.
//
// ConfirmationFingerprint hashes the derived key set under its own label.
// Handshake message 4 carries this fingerprint so the initiator can detect a
// derivation mismatch without either side ever putting key material on the
// wire.
package kdf
