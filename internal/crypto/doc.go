// Package crypto exposes the minimal primitives used by agentlink.
//
// Contents
//
//   - Ed25519 identity generation, signing and verification
//     (GenerateIdentity, Sign, Verify)
//   - X25519 ephemeral key generation, clamping and Diffie–Hellman
//     (GenerateX25519, DH)
//   - One-way conversion from Ed25519 signing keys to X25519 exchange keys
//     (X25519FromEd25519Seed)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// All functions operate on the fixed-size array types defined in
// internal/domain to avoid accidental reallocations. DH is commutative:
// DH(a, B) == DH(b, A) for key pairs (a, A) and (b, B).
package crypto
